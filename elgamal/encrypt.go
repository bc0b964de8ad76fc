package elgamal

import (
	"context"
	"crypto/cipher"
	"math/big"

	"github.com/HRodriguez/svelib/bitstream"
	"github.com/HRodriguez/svelib/progress"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

const maxInt = int(^uint(0) >> 1)

// EncryptOptions tunes an encryption. A nil *EncryptOptions uses the
// defaults.
type EncryptOptions struct {
	// PadTo is the minimum size in bytes of the encoded message, so that
	// ciphertexts of messages of different length look alike.
	PadTo int
	// Rand defaults to crypto/rand.
	Rand     cipher.Stream
	Progress progress.Sink
}

// DecryptOptions tunes a decryption. A nil *DecryptOptions uses the
// defaults.
type DecryptOptions struct {
	// Force skips the check that the ciphertext was made for this key.
	Force    bool
	Progress progress.Sink
}

// FormatPlaintext returns the encoded message: its length on 64 bits, the
// message, then random bits up to at least padTo bytes and up to a
// multiple of blockSize bits.
func FormatPlaintext(msg bitstream.Buffer, padTo, blockSize int, rand cipher.Stream) (*bitstream.Stream, error) {
	if padTo < 0 {
		padTo = 0
	}
	if msg.Len() > maxInt-64-8*padTo-blockSize {
		return nil, xerrors.Errorf("%d bits: %w", msg.Len(), ErrMessageTooLarge)
	}
	if rand == nil {
		rand = random.New()
	}
	out := bitstream.New()
	out.WriteUint64(uint64(msg.Len()))
	if err := out.Append(msg); err != nil {
		return nil, err
	}

	target := out.Len()
	if 8*padTo > target {
		target = 8 * padTo
	}
	if r := target % blockSize; r != 0 {
		target += blockSize - r
	}
	if n := target - out.Len(); n > 0 {
		pad := new(big.Int).SetBytes(random.Bits(uint(n), false, rand))
		if err := out.WriteBits(pad, n); err != nil {
			return nil, err
		}
	}
	return out, out.Seek(0)
}

// ExtractPayload reads back the message written by FormatPlaintext and
// drops the padding.
func ExtractPayload(formatted bitstream.Buffer) (*bitstream.Stream, error) {
	if err := formatted.Seek(0); err != nil {
		return nil, err
	}
	l, err := formatted.ReadBits(64)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrMalformedPlaintext)
	}
	if !l.IsUint64() || l.Uint64() > uint64(formatted.Len()-64) {
		return nil, xerrors.Errorf("announced length %s exceeds data: %w", l, ErrMalformedPlaintext)
	}
	n := int(l.Uint64())
	v, err := formatted.ReadBits(n)
	if err != nil {
		return nil, err
	}
	out := bitstream.New()
	if err := out.WriteBits(v, n); err != nil {
		return nil, err
	}
	return out, out.Seek(0)
}

// Encrypt encrypts msg for key. Every block uses a fresh random exponent.
func Encrypt(ctx context.Context, key EncryptionKey, msg bitstream.Buffer, opts *EncryptOptions) (*Ciphertext, error) {
	if opts == nil {
		opts = &EncryptOptions{}
	}
	rand := opts.Rand
	if rand == nil {
		rand = random.New()
	}
	cs := key.Cryptosystem()
	blockSize := cs.BlockSize()

	formatted, err := FormatPlaintext(msg, opts.PadTo, blockSize, rand)
	if err != nil {
		return nil, err
	}
	y := key.Value()
	blocks := make([]Block, formatted.Len()/blockSize)
	task := progress.Start(opts.Progress, "encrypt", len(blocks))
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := formatted.ReadBits(blockSize)
		if err != nil {
			return nil, err
		}
		k := cs.RandomExponent(rand)
		delta := cs.exp(y, k)
		delta.Mul(delta, m).Mod(delta, cs.p)
		blocks[i] = Block{Gamma: cs.exp(cs.g, k), Delta: delta}
		task.Tick()
	}
	log.Lvlf4("encrypted %d bits in %d blocks", msg.Len(), len(blocks))
	return &Ciphertext{bits: cs.bits, pkFingerprint: key.Fingerprint(), blocks: blocks}, nil
}

// Encrypt encrypts msg for this key.
func (pk *PublicKey) Encrypt(ctx context.Context, msg bitstream.Buffer, opts *EncryptOptions) (*Ciphertext, error) {
	return Encrypt(ctx, pk, msg, opts)
}

// EncryptText encrypts the UTF-8 bytes of text.
func (pk *PublicKey) EncryptText(ctx context.Context, text string, opts *EncryptOptions) (*Ciphertext, error) {
	return Encrypt(ctx, pk, bitstream.FromString(text), opts)
}

// CheckCompatible returns ErrIncompatibleCiphertext if ct was not encrypted
// for key.
func CheckCompatible(key EncryptionKey, ct *Ciphertext) error {
	if ct.bits != key.Cryptosystem().bits {
		return xerrors.Errorf("%d bits ciphertext for a %d bits key: %w", ct.bits, key.Cryptosystem().bits, ErrIncompatibleCiphertext)
	}
	if ct.pkFingerprint != key.Fingerprint() {
		return xerrors.Errorf("fingerprint mismatch: %w", ErrIncompatibleCiphertext)
	}
	return nil
}

// Decrypt returns the message hidden in ct.
func (sk *PrivateKey) Decrypt(ctx context.Context, ct *Ciphertext, opts *DecryptOptions) (*bitstream.Stream, error) {
	if opts == nil {
		opts = &DecryptOptions{}
	}
	if !opts.Force {
		if err := CheckCompatible(sk.pub, ct); err != nil {
			return nil, err
		}
	}
	cs := sk.pub.cs
	// gamma^(p-1-x) is the inverse of gamma^x
	e := new(big.Int).Sub(cs.p, one)
	e.Sub(e, sk.x)

	raw := bitstream.New()
	task := progress.Start(opts.Progress, "decrypt", len(ct.blocks))
	for i, b := range ct.blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := cs.exp(b.Gamma, e)
		m.Mul(m, b.Delta).Mod(m, cs.p)
		if err := raw.WriteBits(m, cs.BlockSize()); err != nil {
			return nil, xerrors.Errorf("block %d: %v: %w", i, err, ErrMalformedPlaintext)
		}
		task.Tick()
	}
	return ExtractPayload(raw)
}

// DecryptText decrypts ct and returns the message as a string.
func (sk *PrivateKey) DecryptText(ctx context.Context, ct *Ciphertext, opts *DecryptOptions) (string, error) {
	msg, err := sk.Decrypt(ctx, ct, opts)
	if err != nil {
		return "", err
	}
	return StreamText(msg)
}

// StreamText returns the bytes of a decrypted stream as a string.
func StreamText(msg *bitstream.Stream) (string, error) {
	if msg.Len()%8 != 0 {
		return "", xerrors.Errorf("%d bits is not a whole number of bytes: %w", msg.Len(), ErrMalformedPlaintext)
	}
	return string(msg.Bytes()), nil
}
