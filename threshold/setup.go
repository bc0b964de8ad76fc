// Package threshold implements k-out-of-n ElGamal: n trustees jointly
// generate a key such that any k of them can decrypt, but fewer learn
// nothing about the messages.
//
// The key generation is a non-interactive Pedersen style protocol run
// through a Setup object:
//
//  1. every trustee registers the public key of its own elgamal key pair;
//  2. every trustee generates a Commitment and publishes it;
//  3. everyone checks that the setup fingerprints match, derives the
//     threshold public key, and every trustee derives its PrivateKey.
//
// Decryption happens through a Combinator that collects and verifies
// PartialDecryption objects, each carrying a zero-knowledge proof.
//
// Trustees are counted from 1 to n everywhere in this package.
package threshold

import (
	"context"
	"crypto/cipher"
	"math/big"

	"github.com/HRodriguez/svelib/bitstream"
	"github.com/HRodriguez/svelib/elgamal"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// State tells which data the setup is still waiting for.
type State int

const (
	// CollectingPublicKeys waits for the elgamal public keys of the trustees.
	CollectingPublicKeys State = iota
	// CollectingCommitments waits for the commitments of the trustees.
	CollectingCommitments
	// Ready can derive the threshold keys.
	Ready
)

func (s State) String() string {
	switch s {
	case CollectingPublicKeys:
		return "collecting public keys"
	case CollectingCommitments:
		return "collecting commitments"
	default:
		return "ready"
	}
}

// Setup is the state of the key generation as seen by one participant.
// Each trustee runs its own Setup with the same inputs.
type Setup struct {
	cs          *elgamal.Cryptosystem
	n           int
	k           int
	publicKeys  []*elgamal.PublicKey
	commitments []*Commitment
}

// NewSetup starts a key generation for n trustees with threshold k.
func NewSetup(cs *elgamal.Cryptosystem, n, k int) (*Setup, error) {
	if k < 1 || k > n {
		return nil, xerrors.Errorf("%d of %d: %w", k, n, ErrInvalidThreshold)
	}
	return &Setup{
		cs:          cs,
		n:           n,
		k:           k,
		publicKeys:  make([]*elgamal.PublicKey, n),
		commitments: make([]*Commitment, n),
	}, nil
}

// Cryptosystem returns the cryptosystem of the setup.
func (s *Setup) Cryptosystem() *elgamal.Cryptosystem {
	return s.cs
}

// NumTrustees returns n.
func (s *Setup) NumTrustees() int {
	return s.n
}

// Threshold returns k.
func (s *Setup) Threshold() int {
	return s.k
}

// State returns the current phase of the setup.
func (s *Setup) State() State {
	for _, pk := range s.publicKeys {
		if pk == nil {
			return CollectingPublicKeys
		}
	}
	for _, c := range s.commitments {
		if c == nil {
			return CollectingCommitments
		}
	}
	return Ready
}

func (s *Setup) checkTrustee(trustee int) error {
	if trustee < 1 || trustee > s.n {
		return xerrors.Errorf("%d not in [1, %d]: %w", trustee, s.n, ErrTrusteeOutOfRange)
	}
	return nil
}

// AddTrusteePublicKey registers the elgamal public key of trustee. A later
// call for the same trustee replaces the key.
func (s *Setup) AddTrusteePublicKey(trustee int, pk *elgamal.PublicKey) error {
	if err := s.checkTrustee(trustee); err != nil {
		return err
	}
	if pk == nil || !pk.Cryptosystem().Equal(s.cs) {
		return xerrors.Errorf("public key of trustee %d: %w", trustee, ErrIncompatibleKey)
	}
	s.publicKeys[trustee-1] = pk
	return nil
}

// GenerateCommitment draws a secret polynomial P of degree k-1 over Z_q
// and returns the commitment to it. It needs every public key. rand may be
// nil.
func (s *Setup) GenerateCommitment(ctx context.Context, rand cipher.Stream) (*Commitment, error) {
	for i, pk := range s.publicKeys {
		if pk == nil {
			return nil, xerrors.Errorf("public key of trustee %d: %w", i+1, ErrSetupState)
		}
	}
	if rand == nil {
		rand = random.New()
	}
	poly, err := RandomPolynomial(s.cs.SubgroupOrder(), s.k-1, rand)
	if err != nil {
		return nil, err
	}

	coeffs := poly.Coefficients()
	public := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		public[i] = new(big.Int).Exp(s.cs.Generator(), c, s.cs.Prime())
	}

	shares := make([]*elgamal.Ciphertext, s.n)
	for j := 1; j <= s.n; j++ {
		msg := bitstream.New()
		if err := msg.WriteBits(poly.Evaluate(big.NewInt(int64(j))), s.cs.BitSize()); err != nil {
			return nil, err
		}
		shares[j-1], err = elgamal.Encrypt(ctx, s.publicKeys[j-1], msg, &elgamal.EncryptOptions{Rand: rand})
		if err != nil {
			return nil, err
		}
	}
	log.Lvlf2("generated commitment for %d trustees, threshold %d", s.n, s.k)
	return &Commitment{cs: s.cs, n: s.n, k: s.k, publicCoefficients: public, encryptedShares: shares}, nil
}

// AddTrusteeCommitment registers the commitment published by trustee.
func (s *Setup) AddTrusteeCommitment(trustee int, c *Commitment) error {
	if err := s.checkTrustee(trustee); err != nil {
		return err
	}
	if c == nil {
		return xerrors.Errorf("no commitment for trustee %d: %w", trustee, ErrMalformedCommitment)
	}
	if !c.cs.Equal(s.cs) || c.n != s.n || c.k != s.k {
		return xerrors.Errorf("commitment of trustee %d is for %d of %d trustees: %w", trustee, c.k, c.n, ErrIncompatibleCommitment)
	}
	s.commitments[trustee-1] = c
	return nil
}

// Commitment returns the commitment registered for trustee, or nil.
func (s *Setup) Commitment(trustee int) (*Commitment, error) {
	if err := s.checkTrustee(trustee); err != nil {
		return nil, err
	}
	return s.commitments[trustee-1], nil
}

func (s *Setup) checkCommitments() error {
	for i, c := range s.commitments {
		if c == nil {
			return xerrors.Errorf("commitment of trustee %d: %w", i+1, ErrSetupState)
		}
	}
	return nil
}

// Fingerprint hashes every public coefficient and encrypted share of every
// commitment. All trustees must see the same fingerprint before trusting
// the derived keys.
func (s *Setup) Fingerprint() (string, error) {
	if err := s.checkCommitments(); err != nil {
		return "", err
	}
	var vals []*big.Int
	for _, c := range s.commitments {
		vals = append(vals, c.publicCoefficients...)
		for _, ct := range c.encryptedShares {
			for _, b := range ct.Blocks() {
				vals = append(vals, b.Gamma, b.Delta)
			}
		}
	}
	return elgamal.HashValues(vals...), nil
}

// GeneratePublicKey derives the threshold public key y = prod_i c_i0^2 and
// the partial public keys of every trustee.
func (s *Setup) GeneratePublicKey() (*PublicKey, error) {
	if err := s.checkCommitments(); err != nil {
		return nil, err
	}
	p := s.cs.Prime()
	y := big.NewInt(1)
	for _, c := range s.commitments {
		sq := new(big.Int).Mul(c.publicCoefficients[0], c.publicCoefficients[0])
		y.Mul(y, sq).Mod(y, p)
	}

	partials := make([]*big.Int, s.n)
	for j := 1; j <= s.n; j++ {
		pp := big.NewInt(1)
		for _, c := range s.commitments {
			pp.Mul(pp, c.evaluate(j)).Mod(pp, p)
		}
		partials[j-1] = pp
	}
	return NewPublicKey(s.cs, s.n, s.k, y, partials)
}

// GenerateKeyPair decrypts the shares sent to trustee with its elgamal
// private key sk, checks each of them against the public coefficients of
// its sender, and returns the threshold public key together with the
// private key of trustee. A *CommitmentError names the first sender whose
// share is unreadable or inconsistent, which includes shares that sk cannot
// decrypt.
func (s *Setup) GenerateKeyPair(ctx context.Context, trustee int, sk *elgamal.PrivateKey) (*PublicKey, *PrivateKey, error) {
	if err := s.checkTrustee(trustee); err != nil {
		return nil, nil, err
	}
	if err := s.checkCommitments(); err != nil {
		return nil, nil, err
	}
	if sk == nil {
		return nil, nil, xerrors.Errorf("no private key for trustee %d: %w", trustee, ErrIncompatibleKey)
	}

	q := s.cs.SubgroupOrder()
	secret := new(big.Int)
	for i, c := range s.commitments {
		share, err := s.readShare(ctx, c.encryptedShares[trustee-1], sk)
		if err != nil {
			if xerrors.Is(err, context.Canceled) || xerrors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			log.Warn("unreadable share from trustee", i+1, ":", err)
			return nil, nil, &CommitmentError{Trustee: i + 1, Reason: err.Error()}
		}
		if partialPublicKey(s.cs, share).Cmp(c.evaluate(trustee)) != 0 {
			log.Warn("share from trustee", i+1, "does not match its public coefficients")
			return nil, nil, &CommitmentError{Trustee: i + 1, Reason: "share does not match the public coefficients"}
		}
		secret.Add(secret, share).Mod(secret, q)
	}

	pub, err := s.GeneratePublicKey()
	if err != nil {
		return nil, nil, err
	}
	priv, err := NewPrivateKey(pub, trustee, secret)
	if err != nil {
		return nil, nil, err
	}
	log.Lvlf2("trustee %d derived its threshold key", trustee)
	return pub, priv, nil
}

func (s *Setup) readShare(ctx context.Context, ct *elgamal.Ciphertext, sk *elgamal.PrivateKey) (*big.Int, error) {
	msg, err := sk.Decrypt(ctx, ct, nil)
	if err != nil {
		return nil, err
	}
	if msg.Len() != s.cs.BitSize() {
		return nil, xerrors.Errorf("share has %d bits: %w", msg.Len(), ErrMalformedCommitment)
	}
	share, err := msg.ReadBits(msg.Len())
	if err != nil {
		return nil, err
	}
	if share.Cmp(s.cs.SubgroupOrder()) >= 0 {
		return nil, xerrors.Errorf("share not in Z_q: %w", ErrMalformedCommitment)
	}
	return share, nil
}
