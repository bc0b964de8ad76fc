package elgamal

import (
	"math/big"

	"golang.org/x/xerrors"
)

// Block is one ElGamal pair: Gamma = g^k and Delta = m * y^k.
type Block struct {
	Gamma *big.Int
	Delta *big.Int
}

func (b Block) copy() Block {
	return Block{Gamma: new(big.Int).Set(b.Gamma), Delta: new(big.Int).Set(b.Delta)}
}

// Ciphertext is an immutable sequence of blocks bound to the fingerprint of
// the key it was encrypted for.
type Ciphertext struct {
	bits          int
	pkFingerprint string
	blocks        []Block
}

// NewCiphertext checks that every component fits in bits bits.
func NewCiphertext(bits int, pkFingerprint string, blocks []Block) (*Ciphertext, error) {
	ct := &Ciphertext{bits: bits, pkFingerprint: pkFingerprint, blocks: make([]Block, len(blocks))}
	for i, b := range blocks {
		if b.Gamma == nil || b.Delta == nil || b.Gamma.Sign() < 0 || b.Delta.Sign() < 0 {
			return nil, xerrors.Errorf("block %d has a missing or negative value: %w", i, ErrBlockTooLarge)
		}
		if b.Gamma.BitLen() > bits || b.Delta.BitLen() > bits {
			return nil, xerrors.Errorf("block %d: %w", i, ErrBlockTooLarge)
		}
		ct.blocks[i] = b.copy()
	}
	return ct, nil
}

// BitSize returns the size of the cryptosystem used for the encryption.
func (ct *Ciphertext) BitSize() int {
	return ct.bits
}

// PublicKeyFingerprint returns the fingerprint of the encryption key.
func (ct *Ciphertext) PublicKeyFingerprint() string {
	return ct.pkFingerprint
}

// Len returns the number of blocks.
func (ct *Ciphertext) Len() int {
	return len(ct.blocks)
}

// Block returns a copy of block i. It panics if i is out of range.
func (ct *Ciphertext) Block(i int) Block {
	return ct.blocks[i].copy()
}

// Blocks returns a copy of all blocks.
func (ct *Ciphertext) Blocks() []Block {
	out := make([]Block, len(ct.blocks))
	for i, b := range ct.blocks {
		out[i] = b.copy()
	}
	return out
}

// Fingerprint is the SHA-256 over the blocks of the ciphertext.
func (ct *Ciphertext) Fingerprint() string {
	vals := make([]*big.Int, 0, 2*len(ct.blocks))
	for _, b := range ct.blocks {
		vals = append(vals, b.Gamma, b.Delta)
	}
	return HashValues(vals...)
}

// Equal compares the bit size, the key fingerprint and every block.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	if ct.bits != other.bits || ct.pkFingerprint != other.pkFingerprint ||
		len(ct.blocks) != len(other.blocks) {
		return false
	}
	for i, b := range ct.blocks {
		o := other.blocks[i]
		if b.Gamma.Cmp(o.Gamma) != 0 || b.Delta.Cmp(o.Delta) != 0 {
			return false
		}
	}
	return true
}
