package elgamal

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// EncryptionKey is anything messages can be encrypted to: a plain public
// key or the public key of a threshold setup.
type EncryptionKey interface {
	Cryptosystem() *Cryptosystem
	// Value returns y = g^x.
	Value() *big.Int
	// Fingerprint identifies the key in ciphertexts.
	Fingerprint() string
}

// PublicKey is y = g^x in a cryptosystem.
type PublicKey struct {
	cs          *Cryptosystem
	y           *big.Int
	fingerprint string
}

// NewPublicKey validates y and returns the public key.
func NewPublicKey(cs *Cryptosystem, y *big.Int) (*PublicKey, error) {
	if y.Sign() <= 0 || y.Cmp(cs.p) >= 0 {
		return nil, xerrors.Errorf("public value not in [1, p-1]: %w", ErrInvalidKey)
	}
	pk := &PublicKey{cs: cs, y: new(big.Int).Set(y)}
	pk.fingerprint = HashValues(big.NewInt(int64(cs.bits)), cs.p, cs.g, pk.y)
	return pk, nil
}

// Cryptosystem implements EncryptionKey.
func (pk *PublicKey) Cryptosystem() *Cryptosystem {
	return pk.cs
}

// Value implements EncryptionKey.
func (pk *PublicKey) Value() *big.Int {
	return new(big.Int).Set(pk.y)
}

// Fingerprint is the SHA-256 of the bit size, prime, generator and value.
func (pk *PublicKey) Fingerprint() string {
	return pk.fingerprint
}

// Equal returns true if both keys have the same cryptosystem and value.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.cs.Equal(other.cs) && pk.y.Cmp(other.y) == 0
}

// PrivateKey holds the secret exponent x of a PublicKey.
type PrivateKey struct {
	pub *PublicKey
	x   *big.Int
}

// NewPrivateKey validates x in [1, p-2] and derives the public key.
func NewPrivateKey(cs *Cryptosystem, x *big.Int) (*PrivateKey, error) {
	if x.Sign() <= 0 || x.Cmp(new(big.Int).Sub(cs.p, two)) > 0 {
		return nil, xerrors.Errorf("private value not in [1, p-2]: %w", ErrInvalidKey)
	}
	pub, err := NewPublicKey(cs, cs.exp(cs.g, x))
	if err != nil {
		return nil, err
	}
	return &PrivateKey{pub: pub, x: new(big.Int).Set(x)}, nil
}

// Cryptosystem returns the cryptosystem of the key.
func (sk *PrivateKey) Cryptosystem() *Cryptosystem {
	return sk.pub.cs
}

// PublicKey returns the matching public key.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return sk.pub
}

// Value returns a copy of the secret exponent.
func (sk *PrivateKey) Value() *big.Int {
	return new(big.Int).Set(sk.x)
}

// KeyPair is a private key and its public key.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// NewKeyPair draws x uniformly in [1, p-2]. rand may be nil.
func NewKeyPair(cs *Cryptosystem, rand cipher.Stream) *KeyPair {
	if rand == nil {
		rand = random.New()
	}
	x := cs.RandomExponent(rand)
	y := cs.exp(cs.g, x)
	pub := &PublicKey{cs: cs, y: y}
	pub.fingerprint = HashValues(big.NewInt(int64(cs.bits)), cs.p, cs.g, y)
	return &KeyPair{Public: pub, Private: &PrivateKey{pub: pub, x: x}}
}
