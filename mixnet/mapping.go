package mixnet

import (
	"context"
	"crypto/cipher"
	"math/big"

	"github.com/HRodriguez/svelib/elgamal"
	"github.com/HRodriguez/svelib/progress"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Verifier checks that shuffled is a shuffle of original. A Mapping is a
// Verifier that knows the secret permutation and re-encryptions; a
// zero-knowledge shuffle proof would implement it without revealing them.
type Verifier interface {
	Verify(original, shuffled *Collection) bool
}

// Mapping is a secret shuffle: ciphertext i of the original collection,
// re-encrypted with Reencryptions()[i], ends up at index Reordering()[i].
type Mapping struct {
	reordering    []int
	reencryptions []*Reencryption
}

// NewMapping draws a random permutation of the collection and a
// re-encryption for every ciphertext. One tick is reported per ciphertext.
func NewMapping(ctx context.Context, c *Collection, rand cipher.Stream, sink progress.Sink) (*Mapping, error) {
	if rand == nil {
		rand = random.New()
	}
	n := c.Len()
	m := &Mapping{reordering: make([]int, n), reencryptions: make([]*Reencryption, n)}
	for i := range m.reordering {
		m.reordering[i] = i
	}
	// Fisher-Yates
	for i := n - 1; i > 0; i-- {
		j := int(random.Int(big.NewInt(int64(i+1)), rand).Int64())
		m.reordering[i], m.reordering[j] = m.reordering[j], m.reordering[i]
	}

	task := progress.Start(sink, "mapping", n)
	for i, ct := range c.ciphertexts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.reencryptions[i] = NewReencryption(c.key, ct.Len(), rand)
		task.Tick()
	}
	log.Lvlf3("created a mapping for %d ciphertexts", n)
	return m, nil
}

// Len returns the size of the collections the mapping applies to.
func (m *Mapping) Len() int {
	return len(m.reordering)
}

// Reordering returns a copy of the permutation.
func (m *Mapping) Reordering() []int {
	return append([]int{}, m.reordering...)
}

// Reencryptions returns the re-encryptions, indexed like the original
// collection.
func (m *Mapping) Reencryptions() []*Reencryption {
	return append([]*Reencryption{}, m.reencryptions...)
}

// Apply returns the shuffled collection.
func (m *Mapping) Apply(c *Collection) (*Collection, error) {
	if c.Len() != len(m.reordering) {
		return nil, xerrors.Errorf("%d ciphertexts, mapping has %d: %w", c.Len(), len(m.reordering), ErrIncompatibleCollection)
	}
	out := NewCollection(c.key)
	out.ciphertexts = make([]*elgamal.Ciphertext, c.Len())
	for i, ct := range c.ciphertexts {
		re, err := m.reencryptions[i].Apply(ct)
		if err != nil {
			return nil, xerrors.Errorf("ciphertext %d: %v: %w", i, err, ErrIncompatibleCollection)
		}
		out.ciphertexts[m.reordering[i]] = re
	}
	return out, nil
}

// Verify returns true if shuffled is exactly original shuffled by m.
func (m *Mapping) Verify(original, shuffled *Collection) bool {
	if shuffled.Len() != original.Len() {
		return false
	}
	expected, err := m.Apply(original)
	if err != nil {
		return false
	}
	return expected.Equal(shuffled)
}
