package threshold

import (
	"context"
	"math/big"

	"github.com/HRodriguez/svelib/bitstream"
	"github.com/HRodriguez/svelib/elgamal"
	"golang.org/x/xerrors"
)

// PublicKey is the key messages are encrypted to when k of n trustees are
// needed to decrypt them. Besides the ElGamal key it holds, for every
// trustee j, the partial public key g^(2*s_j) used to check the partial
// decryptions of j.
type PublicKey struct {
	key         *elgamal.PublicKey
	n           int
	k           int
	partials    []*big.Int
	fingerprint string
}

// NewPublicKey checks that there is one partial public key per trustee.
func NewPublicKey(cs *elgamal.Cryptosystem, n, k int, value *big.Int, partials []*big.Int) (*PublicKey, error) {
	if k < 1 || k > n {
		return nil, xerrors.Errorf("%d of %d: %w", k, n, ErrInvalidThreshold)
	}
	if len(partials) != n {
		return nil, xerrors.Errorf("%d partial public keys for %d trustees: %w", len(partials), n, ErrIncompatibleKey)
	}
	key, err := elgamal.NewPublicKey(cs, value)
	if err != nil {
		return nil, err
	}
	pk := &PublicKey{key: key, n: n, k: k, partials: make([]*big.Int, n)}
	vals := []*big.Int{big.NewInt(int64(cs.BitSize())), cs.Prime(), cs.Generator(),
		value, big.NewInt(int64(n)), big.NewInt(int64(k))}
	for i, p := range partials {
		if p == nil || p.Sign() <= 0 || p.Cmp(cs.Prime()) >= 0 {
			return nil, xerrors.Errorf("partial public key %d: %w", i+1, elgamal.ErrInvalidKey)
		}
		pk.partials[i] = new(big.Int).Set(p)
		vals = append(vals, p)
	}
	pk.fingerprint = elgamal.HashValues(vals...)
	return pk, nil
}

// Cryptosystem implements elgamal.EncryptionKey.
func (pk *PublicKey) Cryptosystem() *elgamal.Cryptosystem {
	return pk.key.Cryptosystem()
}

// Value implements elgamal.EncryptionKey.
func (pk *PublicKey) Value() *big.Int {
	return pk.key.Value()
}

// Fingerprint covers the partial public keys too, so that ciphertexts for
// two setups sharing a key value are told apart.
func (pk *PublicKey) Fingerprint() string {
	return pk.fingerprint
}

// NumTrustees returns n.
func (pk *PublicKey) NumTrustees() int {
	return pk.n
}

// Threshold returns k.
func (pk *PublicKey) Threshold() int {
	return pk.k
}

// PartialPublicKey returns the partial public key of trustee, counted from
// 1.
func (pk *PublicKey) PartialPublicKey(trustee int) (*big.Int, error) {
	if trustee < 1 || trustee > pk.n {
		return nil, xerrors.Errorf("%d not in [1, %d]: %w", trustee, pk.n, ErrTrusteeOutOfRange)
	}
	return new(big.Int).Set(pk.partials[trustee-1]), nil
}

// PartialPublicKeys returns a copy of all partial public keys.
func (pk *PublicKey) PartialPublicKeys() []*big.Int {
	out := make([]*big.Int, len(pk.partials))
	for i, p := range pk.partials {
		out[i] = new(big.Int).Set(p)
	}
	return out
}

// Encrypt encrypts msg for the setup.
func (pk *PublicKey) Encrypt(ctx context.Context, msg bitstream.Buffer, opts *elgamal.EncryptOptions) (*elgamal.Ciphertext, error) {
	return elgamal.Encrypt(ctx, pk, msg, opts)
}

// EncryptText encrypts the UTF-8 bytes of text.
func (pk *PublicKey) EncryptText(ctx context.Context, text string, opts *elgamal.EncryptOptions) (*elgamal.Ciphertext, error) {
	return elgamal.Encrypt(ctx, pk, bitstream.FromString(text), opts)
}

// Equal compares the fingerprints, which cover every field.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.fingerprint == other.fingerprint
}

// PrivateKey is the share s_j of trustee j. On its own it can only produce
// partial decryptions.
type PrivateKey struct {
	pub     *PublicKey
	trustee int
	share   *big.Int
}

// NewPrivateKey checks that g^(2*share) is the partial public key of
// trustee.
func NewPrivateKey(pub *PublicKey, trustee int, share *big.Int) (*PrivateKey, error) {
	ppk, err := pub.PartialPublicKey(trustee)
	if err != nil {
		return nil, err
	}
	cs := pub.Cryptosystem()
	if share.Sign() < 0 || share.Cmp(cs.SubgroupOrder()) >= 0 {
		return nil, xerrors.Errorf("share not in [0, q-1]: %w", elgamal.ErrInvalidKey)
	}
	if partialPublicKey(cs, share).Cmp(ppk) != 0 {
		return nil, xerrors.Errorf("share of trustee %d does not match its partial public key: %w", trustee, ErrIncompatibleKey)
	}
	return &PrivateKey{pub: pub, trustee: trustee, share: new(big.Int).Set(share)}, nil
}

// PublicKey returns the threshold public key.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return sk.pub
}

// Trustee returns the index of the owner, counted from 1.
func (sk *PrivateKey) Trustee() int {
	return sk.trustee
}

// Share returns a copy of the secret share.
func (sk *PrivateKey) Share() *big.Int {
	return new(big.Int).Set(sk.share)
}

// partialPublicKey returns g^(2*share).
func partialPublicKey(cs *elgamal.Cryptosystem, share *big.Int) *big.Int {
	e := new(big.Int).Lsh(share, 1)
	return new(big.Int).Exp(cs.Generator(), e, cs.Prime())
}
