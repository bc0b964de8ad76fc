package threshold

import (
	"context"
	"math/big"
	"sort"

	"github.com/HRodriguez/svelib/bitstream"
	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/progress"
	"go.dedis.ch/kyber/v3/group/mod"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Combinator collects the partial decryptions of one ciphertext and
// combines k of them into the plaintext.
type Combinator struct {
	pub      *PublicKey
	ct       *elgamal.Ciphertext
	partials map[int]*PartialDecryption
}

// NewCombinator returns a combinator for ct, which must have been
// encrypted for pub.
func NewCombinator(pub *PublicKey, ct *elgamal.Ciphertext) (*Combinator, error) {
	if err := elgamal.CheckCompatible(pub, ct); err != nil {
		return nil, err
	}
	return &Combinator{pub: pub, ct: ct, partials: make(map[int]*PartialDecryption)}, nil
}

// Count returns how many verified partial decryptions were added.
func (c *Combinator) Count() int {
	return len(c.partials)
}

// Trustees returns the indexes of the trustees whose partial decryption
// was accepted, in increasing order.
func (c *Combinator) Trustees() []int {
	out := make([]int, 0, len(c.partials))
	for t := range c.partials {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// AddPartialDecryption verifies the proofs of every block of pd against
// the partial public key of trustee and stores it. A second valid partial
// decryption of the same trustee replaces the first one.
func (c *Combinator) AddPartialDecryption(trustee int, pd *PartialDecryption) error {
	ppk, err := c.pub.PartialPublicKey(trustee)
	if err != nil {
		return err
	}
	if pd.bits != c.ct.BitSize() || pd.Len() != c.ct.Len() {
		return xerrors.Errorf("%d blocks of %d bits, ciphertext has %d blocks of %d bits: %w", pd.Len(), pd.bits, c.ct.Len(), c.ct.BitSize(), ErrIncompatiblePartialDecryption)
	}
	cs := c.pub.Cryptosystem()
	for i, pb := range pd.blocks {
		if reason := verifyBlock(cs, ppk, c.ct.Block(i).Gamma, pb); reason != "" {
			log.Warnf("rejecting partial decryption of trustee %d: block %d: %s", trustee, i, reason)
			return &ProofError{Trustee: trustee, Block: i, Reason: reason}
		}
	}
	c.partials[trustee] = pd
	log.Lvlf2("accepted partial decryption of trustee %d (%d/%d)", trustee, len(c.partials), c.pub.k)
	return nil
}

// lagrange returns the Lagrange coefficients at 0 of the given indexes,
// in Z_q.
func lagrange(indexes []int, q *big.Int) []*big.Int {
	out := make([]*big.Int, len(indexes))
	for n, i := range indexes {
		l := mod.NewInt64(1, q)
		for _, j := range indexes {
			if j == i {
				continue
			}
			l.Mul(l, mod.NewInt64(int64(-j), q))
			l.Div(l, mod.NewInt64(int64(i-j), q))
		}
		out[n] = new(big.Int).Set(&l.V)
	}
	return out
}

// Decrypt combines the partial decryptions of the k lowest trustees and
// returns the message.
func (c *Combinator) Decrypt(ctx context.Context, sink progress.Sink) (*bitstream.Stream, error) {
	if len(c.partials) < c.pub.k {
		return nil, xerrors.Errorf("have %d, need %d: %w", len(c.partials), c.pub.k, ErrInsufficientPartialDecryptions)
	}
	cs := c.pub.Cryptosystem()
	p := cs.Prime()
	chosen := c.Trustees()[:c.pub.k]

	// Exponents are 2*lambda, to match the squared public coefficients.
	exps := lagrange(chosen, cs.SubgroupOrder())
	for _, e := range exps {
		e.Lsh(e, 1)
	}

	raw := bitstream.New()
	task := progress.Start(sink, "combine", c.ct.Len())
	for b := 0; b < c.ct.Len(); b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val := big.NewInt(1)
		for n, t := range chosen {
			v := new(big.Int).Exp(c.partials[t].blocks[b].Value, exps[n], p)
			val.Mul(val, v).Mod(val, p)
		}
		inv := new(big.Int).ModInverse(val, p)
		if inv == nil {
			return nil, xerrors.Errorf("block %d combines to zero: %w", b, ErrInvalidPartialDecryption)
		}
		m := inv.Mul(inv, c.ct.Block(b).Delta)
		m.Mod(m, p)
		if err := raw.WriteBits(m, cs.BlockSize()); err != nil {
			return nil, xerrors.Errorf("block %d: %v: %w", b, err, elgamal.ErrMalformedPlaintext)
		}
		task.Tick()
	}
	return elgamal.ExtractPayload(raw)
}

// DecryptText is Decrypt returning the message as a string.
func (c *Combinator) DecryptText(ctx context.Context, sink progress.Sink) (string, error) {
	msg, err := c.Decrypt(ctx, sink)
	if err != nil {
		return "", err
	}
	return elgamal.StreamText(msg)
}
