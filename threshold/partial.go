package threshold

import (
	"context"
	"crypto/cipher"
	"crypto/sha256"
	"math/big"

	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/progress"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// Proof shows in zero-knowledge that a partial decryption value was
// computed with the share behind a partial public key: A = g^s,
// B = gamma^s and T = s + 2*share*c mod (p-1), where the challenge c is
// the hash of (A, B, partial public key, value).
type Proof struct {
	A *big.Int
	B *big.Int
	T *big.Int
}

// PartialBlock is gamma^share for one ciphertext block, and its proof.
type PartialBlock struct {
	Value *big.Int
	Proof Proof
}

func (b PartialBlock) copy() PartialBlock {
	return PartialBlock{
		Value: new(big.Int).Set(b.Value),
		Proof: Proof{
			A: new(big.Int).Set(b.Proof.A),
			B: new(big.Int).Set(b.Proof.B),
			T: new(big.Int).Set(b.Proof.T),
		},
	}
}

// PartialDecryption is the contribution of one trustee to the decryption
// of a ciphertext.
type PartialDecryption struct {
	bits   int
	blocks []PartialBlock
}

// NewPartialDecryption checks that every value is present.
func NewPartialDecryption(bits int, blocks []PartialBlock) (*PartialDecryption, error) {
	pd := &PartialDecryption{bits: bits, blocks: make([]PartialBlock, len(blocks))}
	for i, b := range blocks {
		if b.Value == nil || b.Proof.A == nil || b.Proof.B == nil || b.Proof.T == nil {
			return nil, xerrors.Errorf("block %d has missing values: %w", i, ErrInvalidPartialDecryption)
		}
		pd.blocks[i] = b.copy()
	}
	return pd, nil
}

// BitSize returns the size of the cryptosystem.
func (pd *PartialDecryption) BitSize() int {
	return pd.bits
}

// Len returns the number of blocks.
func (pd *PartialDecryption) Len() int {
	return len(pd.blocks)
}

// Block returns a copy of block i. It panics if i is out of range.
func (pd *PartialDecryption) Block(i int) PartialBlock {
	return pd.blocks[i].copy()
}

// Blocks returns a copy of all blocks.
func (pd *PartialDecryption) Blocks() []PartialBlock {
	out := make([]PartialBlock, len(pd.blocks))
	for i, b := range pd.blocks {
		out[i] = b.copy()
	}
	return out
}

// PartialDecryptionOptions tunes GeneratePartialDecryption. A nil pointer
// uses the defaults.
type PartialDecryptionOptions struct {
	// Force skips the check that the ciphertext was made for this key.
	Force    bool
	Rand     cipher.Stream
	Progress progress.Sink
}

func challenge(a, b, ppk, value *big.Int) *big.Int {
	h := sha256.New()
	elgamal.WriteValues(h, a, b, ppk, value)
	return new(big.Int).SetBytes(h.Sum(nil))
}

// GeneratePartialDecryption computes gamma^share for every block of ct,
// with a proof of correctness.
func (sk *PrivateKey) GeneratePartialDecryption(ctx context.Context, ct *elgamal.Ciphertext,
	opts *PartialDecryptionOptions) (*PartialDecryption, error) {
	if opts == nil {
		opts = &PartialDecryptionOptions{}
	}
	if !opts.Force {
		if err := elgamal.CheckCompatible(sk.pub, ct); err != nil {
			return nil, err
		}
	}
	rand := opts.Rand
	if rand == nil {
		rand = random.New()
	}
	cs := sk.pub.Cryptosystem()
	p, g := cs.Prime(), cs.Generator()
	order := new(big.Int).Sub(p, big.NewInt(1))
	qm1 := new(big.Int).Sub(cs.SubgroupOrder(), big.NewInt(1))
	ppk := partialPublicKey(cs, sk.share)
	twoShare := new(big.Int).Lsh(sk.share, 1)

	blocks := make([]PartialBlock, ct.Len())
	task := progress.Start(opts.Progress, "partial decryption", ct.Len())
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gamma := ct.Block(i).Gamma
		value := new(big.Int).Exp(gamma, sk.share, p)

		// s in [1, q-1]
		s := random.Int(qm1, rand)
		s.Add(s, big.NewInt(1))
		a := new(big.Int).Exp(g, s, p)
		b := new(big.Int).Exp(gamma, s, p)
		c := challenge(a, b, ppk, value)
		t := new(big.Int).Mul(twoShare, c)
		t.Add(t, s).Mod(t, order)

		blocks[i] = PartialBlock{Value: value, Proof: Proof{A: a, B: b, T: t}}
		task.Tick()
	}
	return &PartialDecryption{bits: cs.BitSize(), blocks: blocks}, nil
}

// verifyBlock checks g^T = A * ppk^c and gamma^T = B * (value^2)^c.
func verifyBlock(cs *elgamal.Cryptosystem, ppk, gamma *big.Int, pb PartialBlock) string {
	p := cs.Prime()
	for _, v := range []*big.Int{pb.Value, pb.Proof.A, pb.Proof.B} {
		if v.Sign() <= 0 || v.Cmp(p) >= 0 {
			return "value out of range"
		}
	}
	if pb.Proof.T.Sign() < 0 {
		return "negative response"
	}
	c := challenge(pb.Proof.A, pb.Proof.B, ppk, pb.Value)

	lhs := new(big.Int).Exp(cs.Generator(), pb.Proof.T, p)
	rhs := new(big.Int).Exp(ppk, c, p)
	rhs.Mul(rhs, pb.Proof.A).Mod(rhs, p)
	if lhs.Cmp(rhs) != 0 {
		return "proof does not match the partial public key"
	}

	lhs.Exp(gamma, pb.Proof.T, p)
	sq := new(big.Int).Mul(pb.Value, pb.Value)
	rhs.Exp(sq.Mod(sq, p), c, p)
	rhs.Mul(rhs, pb.Proof.B).Mod(rhs, p)
	if lhs.Cmp(rhs) != 0 {
		return "proof does not match the ciphertext"
	}
	return ""
}
