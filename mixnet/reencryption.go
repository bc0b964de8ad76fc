package mixnet

import (
	"crypto/cipher"
	"math/big"

	"github.com/HRodriguez/svelib/elgamal"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// Reencryption holds, for every block, the pair (g^r, y^r) that multiplied
// component-wise with a block gives a fresh encryption of the same
// plaintext.
type Reencryption struct {
	key    elgamal.EncryptionKey
	blocks []elgamal.Block
}

// NewReencryption draws a random r in [1, p-2] for every one of the
// length blocks. rand may be nil.
func NewReencryption(key elgamal.EncryptionKey, length int, rand cipher.Stream) *Reencryption {
	if rand == nil {
		rand = random.New()
	}
	cs := key.Cryptosystem()
	p, g, y := cs.Prime(), cs.Generator(), key.Value()
	re := &Reencryption{key: key, blocks: make([]elgamal.Block, length)}
	for i := range re.blocks {
		r := cs.RandomExponent(rand)
		re.blocks[i] = elgamal.Block{
			Gamma: new(big.Int).Exp(g, r, p),
			Delta: new(big.Int).Exp(y, r, p),
		}
	}
	return re
}

// Len returns the number of blocks the re-encryption applies to.
func (re *Reencryption) Len() int {
	return len(re.blocks)
}

// Apply returns the re-encryption of ct.
func (re *Reencryption) Apply(ct *elgamal.Ciphertext) (*elgamal.Ciphertext, error) {
	if err := elgamal.CheckCompatible(re.key, ct); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrIncompatibleCiphertext)
	}
	if ct.Len() != len(re.blocks) {
		return nil, xerrors.Errorf("%d blocks, re-encryption has %d: %w", ct.Len(), len(re.blocks), ErrIncompatibleCiphertext)
	}
	p := re.key.Cryptosystem().Prime()
	blocks := ct.Blocks()
	for i, b := range blocks {
		b.Gamma.Mul(b.Gamma, re.blocks[i].Gamma).Mod(b.Gamma, p)
		b.Delta.Mul(b.Delta, re.blocks[i].Delta).Mod(b.Delta, p)
	}
	return elgamal.NewCiphertext(ct.BitSize(), ct.PublicKeyFingerprint(), blocks)
}

// Verify returns true if reencrypted is original re-encrypted with re.
func (re *Reencryption) Verify(original, reencrypted *elgamal.Ciphertext) bool {
	expected, err := re.Apply(original)
	if err != nil {
		return false
	}
	return expected.Equal(reencrypted)
}
