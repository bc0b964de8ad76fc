package threshold

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// Polynomial has coefficients in the integers modulo some number, the
// coefficient of degree i at index i.
type Polynomial struct {
	modulus *big.Int
	coeffs  []*big.Int
}

// NewPolynomial reduces the coefficients modulo modulus.
func NewPolynomial(modulus *big.Int, coeffs []*big.Int) (*Polynomial, error) {
	if len(coeffs) == 0 {
		return nil, ErrEmptyPolynomial
	}
	p := &Polynomial{modulus: new(big.Int).Set(modulus), coeffs: make([]*big.Int, len(coeffs))}
	for i, c := range coeffs {
		p.coeffs[i] = new(big.Int).Mod(c, modulus)
	}
	return p, nil
}

// RandomPolynomial returns a polynomial of the given degree with
// coefficients drawn uniformly in [1, modulus-1]. rand may be nil.
func RandomPolynomial(modulus *big.Int, degree int, rand cipher.Stream) (*Polynomial, error) {
	if degree < 0 {
		return nil, xerrors.Errorf("%d: %w", degree, ErrNegativeDegree)
	}
	if rand == nil {
		rand = random.New()
	}
	bound := new(big.Int).Sub(modulus, big.NewInt(1))
	coeffs := make([]*big.Int, degree+1)
	for i := range coeffs {
		coeffs[i] = random.Int(bound, rand)
		coeffs[i].Add(coeffs[i], big.NewInt(1))
	}
	return &Polynomial{modulus: new(big.Int).Set(modulus), coeffs: coeffs}, nil
}

// Degree returns the number of coefficients minus one.
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Modulus returns a copy of the modulus.
func (p *Polynomial) Modulus() *big.Int {
	return new(big.Int).Set(p.modulus)
}

// Coefficient returns a copy of the coefficient of degree i.
func (p *Polynomial) Coefficient(i int) (*big.Int, error) {
	if i < 0 || i >= len(p.coeffs) {
		return nil, xerrors.Errorf("%d not in [0, %d]: %w", i, p.Degree(), ErrCoefficientIndex)
	}
	return new(big.Int).Set(p.coeffs[i]), nil
}

// Coefficients returns a copy of all coefficients.
func (p *Polynomial) Coefficients() []*big.Int {
	out := make([]*big.Int, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = new(big.Int).Set(c)
	}
	return out
}

// Evaluate returns P(x) mod modulus.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	res := new(big.Int)
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		res.Mul(res, x)
		res.Add(res, p.coeffs[i])
		res.Mod(res, p.modulus)
	}
	return res
}
