package threshold

import (
	"context"
	"math/big"
	"testing"

	"github.com/HRodriguez/svelib"
	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/progress"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

var bg = context.Background()

var prime128, _ = new(big.Int).SetString("a6caf4a2820475daa9de24b44b7b4cb3", 16)

var _ elgamal.EncryptionKey = (*PublicKey)(nil)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func load128(t *testing.T) *elgamal.Cryptosystem {
	cs, err := elgamal.Load(svelib.DefaultParams(svelib.Insecure), 128, prime128, big.NewInt(2))
	require.NoError(t, err)
	return cs
}

type trustees struct {
	setup *Setup
	pairs []*elgamal.KeyPair
	pub   *PublicKey
	keys  []*PrivateKey
}

// runSetup plays the whole key generation for n trustees with one shared
// Setup.
func runSetup(t *testing.T, n, k int) *trustees {
	cs := load128(t)
	setup, err := NewSetup(cs, n, k)
	require.NoError(t, err)
	tr := &trustees{setup: setup}

	for i := 1; i <= n; i++ {
		kp := elgamal.NewKeyPair(cs, nil)
		tr.pairs = append(tr.pairs, kp)
		require.NoError(t, setup.AddTrusteePublicKey(i, kp.Public))
	}
	require.Equal(t, CollectingCommitments, setup.State())

	for i := 1; i <= n; i++ {
		c, err := setup.GenerateCommitment(bg, nil)
		require.NoError(t, err)
		require.NoError(t, setup.AddTrusteeCommitment(i, c))
	}
	require.Equal(t, Ready, setup.State())

	for i := 1; i <= n; i++ {
		pub, sk, err := setup.GenerateKeyPair(bg, i, tr.pairs[i-1].Private)
		require.NoError(t, err)
		if tr.pub == nil {
			tr.pub = pub
		}
		require.True(t, tr.pub.Equal(pub))
		require.Equal(t, i, sk.Trustee())
		tr.keys = append(tr.keys, sk)
	}
	return tr
}

func (tr *trustees) partial(t *testing.T, trustee int, ct *elgamal.Ciphertext) *PartialDecryption {
	pd, err := tr.keys[trustee-1].GeneratePartialDecryption(bg, ct, nil)
	require.NoError(t, err)
	return pd
}

func TestThreshold_Decrypt(t *testing.T) {
	tr := runSetup(t, 5, 3)
	require.Equal(t, 5, tr.pub.NumTrustees())
	require.Equal(t, 3, tr.pub.Threshold())

	ct, err := tr.pub.EncryptText(bg, "test", nil)
	require.NoError(t, err)

	comb, err := NewCombinator(tr.pub, ct)
	require.NoError(t, err)
	require.NoError(t, comb.AddPartialDecryption(1, tr.partial(t, 1, ct)))
	require.NoError(t, comb.AddPartialDecryption(3, tr.partial(t, 3, ct)))
	_, err = comb.Decrypt(bg, nil)
	require.True(t, xerrors.Is(err, ErrInsufficientPartialDecryptions))

	require.NoError(t, comb.AddPartialDecryption(5, tr.partial(t, 5, ct)))
	require.Equal(t, []int{1, 3, 5}, comb.Trustees())
	mon := progress.NewMonitor("test", 0)
	text, err := comb.DecryptText(bg, mon)
	require.NoError(t, err)
	require.Equal(t, "test", text)
	require.Equal(t, ct.Len(), mon.Current().Ticks())
}

// Test that every subset of size k decrypts, and that adding more partial
// decryptions than needed does no harm.
func TestThreshold_Subsets(t *testing.T) {
	tr := runSetup(t, 4, 2)
	ct, err := tr.pub.EncryptText(bg, "a longer ballot that spans a few blocks", &elgamal.EncryptOptions{PadTo: 64})
	require.NoError(t, err)

	partials := make([]*PartialDecryption, 4)
	for i := range partials {
		partials[i] = tr.partial(t, i+1, ct)
	}
	for a := 1; a <= 4; a++ {
		for b := a + 1; b <= 4; b++ {
			comb, err := NewCombinator(tr.pub, ct)
			require.NoError(t, err)
			require.NoError(t, comb.AddPartialDecryption(a, partials[a-1]))
			require.NoError(t, comb.AddPartialDecryption(b, partials[b-1]))
			text, err := comb.DecryptText(bg, nil)
			require.NoError(t, err)
			require.Equal(t, "a longer ballot that spans a few blocks", text)
		}
	}

	comb, err := NewCombinator(tr.pub, ct)
	require.NoError(t, err)
	for i, pd := range partials {
		require.NoError(t, comb.AddPartialDecryption(i+1, pd))
	}
	require.Equal(t, 4, comb.Count())
	text, err := comb.DecryptText(bg, nil)
	require.NoError(t, err)
	require.Equal(t, "a longer ballot that spans a few blocks", text)
}

func TestThreshold_SingleTrustee(t *testing.T) {
	tr := runSetup(t, 1, 1)
	ct, err := tr.pub.EncryptText(bg, "alone", nil)
	require.NoError(t, err)
	comb, err := NewCombinator(tr.pub, ct)
	require.NoError(t, err)
	require.NoError(t, comb.AddPartialDecryption(1, tr.partial(t, 1, ct)))
	text, err := comb.DecryptText(bg, nil)
	require.NoError(t, err)
	require.Equal(t, "alone", text)
}

func TestCombinator_InvalidPartials(t *testing.T) {
	tr := runSetup(t, 3, 2)
	ct, err := tr.pub.EncryptText(bg, "test", nil)
	require.NoError(t, err)
	comb, err := NewCombinator(tr.pub, ct)
	require.NoError(t, err)

	// A partial decryption announced for the wrong trustee.
	err = comb.AddPartialDecryption(2, tr.partial(t, 1, ct))
	require.True(t, xerrors.Is(err, ErrInvalidPartialDecryptionProof))
	perr, ok := err.(*ProofError)
	require.True(t, ok)
	require.Equal(t, 2, perr.Trustee)
	require.Equal(t, 0, perr.Block)

	// A tampered value.
	blocks := tr.partial(t, 1, ct).Blocks()
	blocks[0].Value.Add(blocks[0].Value, big.NewInt(1))
	forged, err := NewPartialDecryption(128, blocks)
	require.NoError(t, err)
	err = comb.AddPartialDecryption(1, forged)
	require.True(t, xerrors.Is(err, ErrInvalidPartialDecryptionProof))

	// Wrong shape.
	short, err := NewPartialDecryption(128, nil)
	require.NoError(t, err)
	err = comb.AddPartialDecryption(1, short)
	require.True(t, xerrors.Is(err, ErrIncompatiblePartialDecryption))

	err = comb.AddPartialDecryption(4, tr.partial(t, 1, ct))
	require.True(t, xerrors.Is(err, ErrTrusteeOutOfRange))

	_, err = NewPartialDecryption(128, []PartialBlock{{Value: big.NewInt(1)}})
	require.True(t, xerrors.Is(err, ErrInvalidPartialDecryption))

	require.Equal(t, 0, comb.Count())
}

func TestCombinator_Incompatible(t *testing.T) {
	tr := runSetup(t, 2, 2)
	other := elgamal.NewKeyPair(tr.pub.Cryptosystem(), nil)
	ct, err := other.Public.EncryptText(bg, "test", nil)
	require.NoError(t, err)

	_, err = NewCombinator(tr.pub, ct)
	require.True(t, xerrors.Is(err, elgamal.ErrIncompatibleCiphertext))
	_, err = tr.keys[0].GeneratePartialDecryption(bg, ct, nil)
	require.True(t, xerrors.Is(err, elgamal.ErrIncompatibleCiphertext))
	_, err = tr.keys[0].GeneratePartialDecryption(bg, ct, &PartialDecryptionOptions{Force: true})
	require.NoError(t, err)
}

func TestSetup_Errors(t *testing.T) {
	cs := load128(t)
	_, err := NewSetup(cs, 3, 4)
	require.True(t, xerrors.Is(err, ErrInvalidThreshold))
	_, err = NewSetup(cs, 3, 0)
	require.True(t, xerrors.Is(err, ErrInvalidThreshold))

	setup, err := NewSetup(cs, 3, 2)
	require.NoError(t, err)
	require.Equal(t, CollectingPublicKeys, setup.State())
	kp := elgamal.NewKeyPair(cs, nil)
	require.True(t, xerrors.Is(setup.AddTrusteePublicKey(0, kp.Public), ErrTrusteeOutOfRange))
	require.True(t, xerrors.Is(setup.AddTrusteePublicKey(4, kp.Public), ErrTrusteeOutOfRange))
	require.True(t, xerrors.Is(setup.AddTrusteePublicKey(2, nil), ErrIncompatibleKey))
	require.True(t, xerrors.Is(setup.AddTrusteeCommitment(2, nil), ErrMalformedCommitment))
	require.NoError(t, setup.AddTrusteePublicKey(1, kp.Public))

	_, err = setup.GenerateCommitment(bg, nil)
	require.True(t, xerrors.Is(err, ErrSetupState))
	_, err = setup.Fingerprint()
	require.True(t, xerrors.Is(err, ErrSetupState))
	_, err = setup.GeneratePublicKey()
	require.True(t, xerrors.Is(err, ErrSetupState))

	// Commitments for a different threshold are rejected.
	tr := runSetup(t, 3, 3)
	c, err := tr.setup.Commitment(1)
	require.NoError(t, err)
	require.True(t, xerrors.Is(setup.AddTrusteeCommitment(1, c), ErrIncompatibleCommitment))
}

// Test that two trustees running their own Setup on the same data agree on
// the fingerprint and the keys.
func TestSetup_Fingerprint(t *testing.T) {
	tr := runSetup(t, 3, 2)
	fp, err := tr.setup.Fingerprint()
	require.NoError(t, err)

	mirror, err := NewSetup(tr.setup.Cryptosystem(), 3, 2)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		require.NoError(t, mirror.AddTrusteePublicKey(i, tr.pairs[i-1].Public))
		c, err := tr.setup.Commitment(i)
		require.NoError(t, err)
		require.NoError(t, mirror.AddTrusteeCommitment(i, c))
	}
	mfp, err := mirror.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, fp, mfp)

	pub, err := mirror.GeneratePublicKey()
	require.NoError(t, err)
	require.True(t, pub.Equal(tr.pub))
	require.Equal(t, tr.pub.Fingerprint(), pub.Fingerprint())

	// Replacing one commitment changes the fingerprint.
	c, err := mirror.GenerateCommitment(bg, nil)
	require.NoError(t, err)
	require.NoError(t, mirror.AddTrusteeCommitment(2, c))
	mfp, err = mirror.Fingerprint()
	require.NoError(t, err)
	require.NotEqual(t, fp, mfp)
}

func TestSetup_InvalidCommitment(t *testing.T) {
	tr := runSetup(t, 3, 2)
	honest, err := tr.setup.Commitment(2)
	require.NoError(t, err)

	coeffs := honest.PublicCoefficients()
	coeffs[1] = new(big.Int).Exp(coeffs[1], big.NewInt(2), prime128)
	forged, err := NewCommitment(honest.Cryptosystem(), 3, 2, coeffs, honest.EncryptedShares())
	require.NoError(t, err)
	require.NoError(t, tr.setup.AddTrusteeCommitment(2, forged))

	_, _, err = tr.setup.GenerateKeyPair(bg, 1, tr.pairs[0].Private)
	require.True(t, xerrors.Is(err, ErrInvalidCommitment))
	cerr, ok := err.(*CommitmentError)
	require.True(t, ok)
	require.Equal(t, 2, cerr.Trustee)

	// Shares encrypted for someone else cannot be read.
	shares := honest.EncryptedShares()
	shares[0], shares[1] = shares[1], shares[0]
	swapped, err := NewCommitment(honest.Cryptosystem(), 3, 2, honest.PublicCoefficients(), shares)
	require.NoError(t, err)
	require.NoError(t, tr.setup.AddTrusteeCommitment(2, swapped))
	_, _, err = tr.setup.GenerateKeyPair(bg, 1, tr.pairs[0].Private)
	require.True(t, xerrors.Is(err, ErrInvalidCommitment))

	// The wrong private key cannot read the first share.
	_, _, err = tr.setup.GenerateKeyPair(bg, 1, tr.pairs[1].Private)
	require.True(t, xerrors.Is(err, ErrInvalidCommitment))
	cerr, ok = err.(*CommitmentError)
	require.True(t, ok)
	require.Equal(t, 1, cerr.Trustee)

	_, _, err = tr.setup.GenerateKeyPair(bg, 1, nil)
	require.True(t, xerrors.Is(err, ErrIncompatibleKey))
}

func TestCommitment_Malformed(t *testing.T) {
	tr := runSetup(t, 2, 2)
	c, err := tr.setup.Commitment(1)
	require.NoError(t, err)
	require.Equal(t, 2, c.NumTrustees())
	require.Equal(t, 2, c.Threshold())

	_, err = NewCommitment(c.Cryptosystem(), 2, 2, c.PublicCoefficients()[:1], c.EncryptedShares())
	require.True(t, xerrors.Is(err, ErrMalformedCommitment))
	_, err = NewCommitment(c.Cryptosystem(), 2, 2, c.PublicCoefficients(), c.EncryptedShares()[:1])
	require.True(t, xerrors.Is(err, ErrMalformedCommitment))
	_, err = c.EncryptedShare(3)
	require.True(t, xerrors.Is(err, ErrTrusteeOutOfRange))
}

func TestKeys_Validation(t *testing.T) {
	tr := runSetup(t, 3, 2)
	cs := tr.pub.Cryptosystem()

	_, err := tr.pub.PartialPublicKey(0)
	require.True(t, xerrors.Is(err, ErrTrusteeOutOfRange))

	_, err = NewPrivateKey(tr.pub, 2, tr.keys[0].Share())
	require.True(t, xerrors.Is(err, ErrIncompatibleKey))
	sk, err := NewPrivateKey(tr.pub, 1, tr.keys[0].Share())
	require.NoError(t, err)
	require.Equal(t, tr.pub, sk.PublicKey())

	_, err = NewPublicKey(cs, 3, 2, tr.pub.Value(), tr.pub.PartialPublicKeys()[:2])
	require.True(t, xerrors.Is(err, ErrIncompatibleKey))
	_, err = NewPublicKey(cs, 3, 4, tr.pub.Value(), tr.pub.PartialPublicKeys())
	require.True(t, xerrors.Is(err, ErrInvalidThreshold))

	// The partial public keys are part of the identity of the key.
	ppk := tr.pub.PartialPublicKeys()
	ppk[0], ppk[1] = ppk[1], ppk[0]
	swapped, err := NewPublicKey(cs, 3, 2, tr.pub.Value(), ppk)
	require.NoError(t, err)
	require.NotEqual(t, tr.pub.Fingerprint(), swapped.Fingerprint())
}
