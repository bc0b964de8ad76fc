// Package elgamal implements ElGamal over the multiplicative group of a
// safe prime p = 2q + 1.
//
// A Cryptosystem fixes the group. Key pairs live in a cryptosystem and
// encrypt arbitrary bit strings block by block: every block holds
// BitSize()-1 bits so that it is always smaller than p.
package elgamal

import (
	"context"
	"crypto/cipher"
	"math/big"

	"github.com/HRodriguez/svelib"
	"github.com/HRodriguez/svelib/progress"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Cryptosystem is an immutable (bit size, safe prime, generator) triple.
type Cryptosystem struct {
	bits int
	p    *big.Int
	q    *big.Int
	g    *big.Int
}

func checkSize(params svelib.Params, bits int) error {
	if bits < params.MinimumBitSize || bits < 8 {
		return xerrors.Errorf("%d bits, minimum is %d: %w", bits, params.MinimumBitSize, ErrKeyTooShort)
	}
	if bits%8 != 0 {
		return xerrors.Errorf("%d bits: %w", bits, ErrKeyNotByteAligned)
	}
	return nil
}

// Generate creates a new cryptosystem with a random safe prime of exactly
// bits bits and a random generator. rand may be nil, in which case
// crypto/rand is used. The context is checked before every candidate and
// one tick is reported per prime candidate.
func Generate(ctx context.Context, params svelib.Params, bits int, rand cipher.Stream,
	sink progress.Sink) (*Cryptosystem, error) {
	if err := checkSize(params, bits); err != nil {
		return nil, err
	}
	if rand == nil {
		rand = random.New()
	}
	rounds := params.PrimalityRounds()

	task := progress.Start(sink, "safe prime", 0)
	var p, q *big.Int
	for candidates := 1; ; candidates++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		task.Tick()
		q = new(big.Int).SetBytes(random.Bits(uint(bits-1), true, rand))
		q.SetBit(q, 0, 1)
		if !q.ProbablyPrime(1) {
			continue
		}
		p = new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if p.ProbablyPrime(1) && q.ProbablyPrime(rounds) && p.ProbablyPrime(rounds) {
			log.Lvlf3("found a %d bits safe prime after %d candidates", bits, candidates)
			break
		}
	}

	task = progress.Start(sink, "generator", 0)
	pm1 := new(big.Int).Sub(p, one)
	cs := &Cryptosystem{bits: bits, p: p, q: q}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		task.Tick()
		// a in [1, p-1]
		a := random.Int(pm1, rand)
		a.Add(a, one)
		if cs.isGenerator(a) {
			cs.g = a
			return cs, nil
		}
		log.Lvl4("rejected generator candidate")
	}
}

// Load validates and returns the cryptosystem (bits, prime, generator), as
// read from storage or received from another party.
func Load(params svelib.Params, bits int, prime, generator *big.Int) (*Cryptosystem, error) {
	if err := checkSize(params, bits); err != nil {
		return nil, err
	}
	if prime == nil {
		return nil, ErrNotSafePrime
	}
	if generator == nil {
		return nil, ErrNotGenerator
	}
	if prime.BitLen() != bits {
		return nil, xerrors.Errorf("%d bits instead of %d: %w", prime.BitLen(), bits, ErrWrongPrimeSize)
	}
	rounds := params.VerificationRounds()
	q := new(big.Int).Rsh(prime, 1)
	if prime.Bit(0) != 1 || !prime.ProbablyPrime(rounds) || !q.ProbablyPrime(rounds) {
		return nil, ErrNotSafePrime
	}
	cs := &Cryptosystem{
		bits: bits,
		p:    new(big.Int).Set(prime),
		q:    q,
	}
	if generator.Sign() <= 0 || generator.Cmp(prime) >= 0 || !cs.isGenerator(generator) {
		return nil, ErrNotGenerator
	}
	cs.g = new(big.Int).Set(generator)
	return cs, nil
}

// The group has order 2q, so a generates it iff neither a^2 nor a^q is 1.
func (cs *Cryptosystem) isGenerator(a *big.Int) bool {
	if new(big.Int).Exp(a, two, cs.p).Cmp(one) == 0 {
		return false
	}
	return new(big.Int).Exp(a, cs.q, cs.p).Cmp(one) != 0
}

// BitSize returns the size of the prime in bits.
func (cs *Cryptosystem) BitSize() int {
	return cs.bits
}

// BlockSize returns the number of plaintext bits held by one ciphertext
// block.
func (cs *Cryptosystem) BlockSize() int {
	return cs.bits - 1
}

// Prime returns a copy of p.
func (cs *Cryptosystem) Prime() *big.Int {
	return new(big.Int).Set(cs.p)
}

// SubgroupOrder returns a copy of q = (p-1)/2.
func (cs *Cryptosystem) SubgroupOrder() *big.Int {
	return new(big.Int).Set(cs.q)
}

// Generator returns a copy of the generator.
func (cs *Cryptosystem) Generator() *big.Int {
	return new(big.Int).Set(cs.g)
}

// Equal returns true if both cryptosystems have the same size, prime and
// generator.
func (cs *Cryptosystem) Equal(other *Cryptosystem) bool {
	return cs.bits == other.bits && cs.p.Cmp(other.p) == 0 && cs.g.Cmp(other.g) == 0
}

// exp returns base^e mod p.
func (cs *Cryptosystem) exp(base, e *big.Int) *big.Int {
	return new(big.Int).Exp(base, e, cs.p)
}

// RandomExponent returns a uniform value in [1, p-2].
func (cs *Cryptosystem) RandomExponent(rand cipher.Stream) *big.Int {
	k := random.Int(new(big.Int).Sub(cs.p, two), rand)
	return k.Add(k, one)
}
