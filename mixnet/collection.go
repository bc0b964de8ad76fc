// Package mixnet shuffles collections of ciphertexts. A shuffle re-orders
// the ciphertexts and re-encrypts each of them, so that nobody can link an
// output ciphertext to its input without knowing the Mapping.
package mixnet

import (
	"github.com/HRodriguez/svelib/elgamal"
	"golang.org/x/xerrors"
)

var (
	// ErrIncompatibleCiphertext is returned when a ciphertext was not
	// encrypted for the key of the collection.
	ErrIncompatibleCiphertext = xerrors.New("ciphertext not encrypted for the collection key")
	// ErrIncompatibleCollection is returned when a mapping is applied to a
	// collection of another size or key.
	ErrIncompatibleCollection = xerrors.New("collection does not match the mapping")
	// ErrIndexOutOfRange is returned by Collection.At.
	ErrIndexOutOfRange = xerrors.New("index out of range")
)

// Collection is an ordered list of ciphertexts, all encrypted for the same
// key.
type Collection struct {
	key         elgamal.EncryptionKey
	ciphertexts []*elgamal.Ciphertext
}

// NewCollection returns an empty collection for key.
func NewCollection(key elgamal.EncryptionKey) *Collection {
	return &Collection{key: key}
}

// Key returns the key of the collection.
func (c *Collection) Key() elgamal.EncryptionKey {
	return c.key
}

// PublicKeyFingerprint returns the fingerprint of the collection key.
func (c *Collection) PublicKeyFingerprint() string {
	return c.key.Fingerprint()
}

// Add appends ct to the collection.
func (c *Collection) Add(ct *elgamal.Ciphertext) error {
	if err := elgamal.CheckCompatible(c.key, ct); err != nil {
		return xerrors.Errorf("%v: %w", err, ErrIncompatibleCiphertext)
	}
	c.ciphertexts = append(c.ciphertexts, ct)
	return nil
}

// Len returns the number of ciphertexts.
func (c *Collection) Len() int {
	return len(c.ciphertexts)
}

// At returns the ciphertext at index i.
func (c *Collection) At(i int) (*elgamal.Ciphertext, error) {
	if i < 0 || i >= len(c.ciphertexts) {
		return nil, xerrors.Errorf("%d not in [0, %d): %w", i, len(c.ciphertexts), ErrIndexOutOfRange)
	}
	return c.ciphertexts[i], nil
}

// Ciphertexts returns the ciphertexts in order.
func (c *Collection) Ciphertexts() []*elgamal.Ciphertext {
	return append([]*elgamal.Ciphertext{}, c.ciphertexts...)
}

// Equal is true if both collections are for the same key and hold equal
// ciphertexts in the same order.
func (c *Collection) Equal(other *Collection) bool {
	if c.key.Fingerprint() != other.key.Fingerprint() || len(c.ciphertexts) != len(other.ciphertexts) {
		return false
	}
	for i, ct := range c.ciphertexts {
		if !ct.Equal(other.ciphertexts[i]) {
			return false
		}
	}
	return true
}
