package elgamal

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math/big"
)

// WriteValues feeds the numbers to h, each one prefixed by the length of
// its big-endian encoding so that two different sequences never produce the
// same input.
func WriteValues(h hash.Hash, vals ...*big.Int) {
	var l [4]byte
	for _, v := range vals {
		b := v.Bytes()
		binary.BigEndian.PutUint32(l[:], uint32(len(b)))
		h.Write(l[:])
		h.Write(b)
	}
}

// HashValues returns the hex encoded SHA-256 of the numbers.
func HashValues(vals ...*big.Int) string {
	h := sha256.New()
	WriteValues(h, vals...)
	return hex.EncodeToString(h.Sum(nil))
}
