package threshold

import (
	"math/big"

	"github.com/HRodriguez/svelib/elgamal"
	"golang.org/x/xerrors"
)

// Commitment is what a trustee publishes during the key generation: the
// public coefficients g^a_k of its secret polynomial, and for every trustee
// j the value P(j) encrypted to the public key of j.
type Commitment struct {
	cs                 *elgamal.Cryptosystem
	n                  int
	k                  int
	publicCoefficients []*big.Int
	encryptedShares    []*elgamal.Ciphertext
}

// NewCommitment checks that there are k public coefficients and n
// encrypted shares.
func NewCommitment(cs *elgamal.Cryptosystem, n, k int, publicCoefficients []*big.Int,
	encryptedShares []*elgamal.Ciphertext) (*Commitment, error) {
	if k < 1 || k > n {
		return nil, xerrors.Errorf("%d of %d: %w", k, n, ErrInvalidThreshold)
	}
	if len(publicCoefficients) != k {
		return nil, xerrors.Errorf("%d public coefficients for threshold %d: %w", len(publicCoefficients), k, ErrMalformedCommitment)
	}
	if len(encryptedShares) != n {
		return nil, xerrors.Errorf("%d encrypted shares for %d trustees: %w", len(encryptedShares), n, ErrMalformedCommitment)
	}
	c := &Commitment{
		cs:                 cs,
		n:                  n,
		k:                  k,
		publicCoefficients: make([]*big.Int, k),
		encryptedShares:    append([]*elgamal.Ciphertext{}, encryptedShares...),
	}
	for i, pc := range publicCoefficients {
		if pc == nil || pc.Sign() <= 0 || pc.Cmp(cs.Prime()) >= 0 {
			return nil, xerrors.Errorf("public coefficient %d out of range: %w", i, ErrMalformedCommitment)
		}
		c.publicCoefficients[i] = new(big.Int).Set(pc)
	}
	for i, ct := range encryptedShares {
		if ct == nil {
			return nil, xerrors.Errorf("missing share %d: %w", i+1, ErrMalformedCommitment)
		}
	}
	return c, nil
}

// Cryptosystem returns the cryptosystem of the setup.
func (c *Commitment) Cryptosystem() *elgamal.Cryptosystem {
	return c.cs
}

// NumTrustees returns n.
func (c *Commitment) NumTrustees() int {
	return c.n
}

// Threshold returns k.
func (c *Commitment) Threshold() int {
	return c.k
}

// PublicCoefficients returns a copy of the g^a_k.
func (c *Commitment) PublicCoefficients() []*big.Int {
	out := make([]*big.Int, len(c.publicCoefficients))
	for i, pc := range c.publicCoefficients {
		out[i] = new(big.Int).Set(pc)
	}
	return out
}

// EncryptedShare returns the share destined to trustee, counted from 1.
func (c *Commitment) EncryptedShare(trustee int) (*elgamal.Ciphertext, error) {
	if trustee < 1 || trustee > c.n {
		return nil, xerrors.Errorf("%d not in [1, %d]: %w", trustee, c.n, ErrTrusteeOutOfRange)
	}
	return c.encryptedShares[trustee-1], nil
}

// EncryptedShares returns the shares in trustee order. Ciphertexts are
// immutable and shared.
func (c *Commitment) EncryptedShares() []*elgamal.Ciphertext {
	return append([]*elgamal.Ciphertext{}, c.encryptedShares...)
}

// evaluate returns prod_k c_k^(2*j^k), which equals g^(2*P(j)) for an honest
// trustee.
func (c *Commitment) evaluate(j int) *big.Int {
	p := c.cs.Prime()
	order := new(big.Int).Sub(p, big.NewInt(1))
	res := big.NewInt(1)
	jk := big.NewInt(1)
	bj := big.NewInt(int64(j))
	for _, pc := range c.publicCoefficients {
		e := new(big.Int).Lsh(jk, 1)
		e.Mod(e, order)
		res.Mul(res, new(big.Int).Exp(pc, e, p)).Mod(res, p)
		jk.Mul(jk, bj)
	}
	return res
}
