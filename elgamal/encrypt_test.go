package elgamal

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/HRodriguez/svelib/bitstream"
	"github.com/HRodriguez/svelib/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

var bg = context.Background()

func TestEncrypt_Text(t *testing.T) {
	kp := NewKeyPair(load128(t), nil)

	for _, msg := range []string{"", "test", strings.Repeat("vote for me ", 100)} {
		ct, err := kp.Public.EncryptText(bg, msg, nil)
		require.NoError(t, err)
		require.Equal(t, 128, ct.BitSize())
		require.Equal(t, kp.Public.Fingerprint(), ct.PublicKeyFingerprint())

		text, err := kp.Private.DecryptText(bg, ct, nil)
		require.NoError(t, err)
		require.Equal(t, msg, text)
	}
}

// Test that the bit length of the message is preserved even when it is not
// a whole number of bytes.
func TestEncrypt_Bits(t *testing.T) {
	kp := NewKeyPair(load256(t), nil)
	msg := bitstream.New()
	require.NoError(t, msg.WriteBits(big.NewInt(0x5a5), 11))

	ct, err := kp.Public.Encrypt(bg, msg, nil)
	require.NoError(t, err)
	out, err := kp.Private.Decrypt(bg, ct, nil)
	require.NoError(t, err)
	require.True(t, msg.Equal(out))

	_, err = StreamText(out)
	require.True(t, xerrors.Is(err, ErrMalformedPlaintext))
}

func TestEncrypt_Blocks(t *testing.T) {
	kp := NewKeyPair(load128(t), nil)

	// 64 bits of length and 32 of message fit in one 127 bits block.
	ct, err := kp.Public.EncryptText(bg, "test", nil)
	require.NoError(t, err)
	require.Equal(t, 1, ct.Len())

	// 100 bytes of padding need 7 blocks.
	mon := progress.NewMonitor("test", 0)
	ct, err = kp.Public.EncryptText(bg, "test", &EncryptOptions{PadTo: 100, Progress: mon})
	require.NoError(t, err)
	require.Equal(t, 7, ct.Len())
	require.Equal(t, 7, mon.Current().Ticks())
	require.Equal(t, 100.0, mon.Current().Percent())

	text, err := kp.Private.DecryptText(bg, ct, nil)
	require.NoError(t, err)
	require.Equal(t, "test", text)

	for _, b := range ct.Blocks() {
		assert.True(t, b.Gamma.Cmp(kp.Public.Cryptosystem().Prime()) < 0)
		assert.True(t, b.Delta.Cmp(kp.Public.Cryptosystem().Prime()) < 0)
	}
}

func TestEncrypt_Randomized(t *testing.T) {
	kp := NewKeyPair(load128(t), nil)
	a, err := kp.Public.EncryptText(bg, "same", nil)
	require.NoError(t, err)
	b, err := kp.Public.EncryptText(bg, "same", nil)
	require.NoError(t, err)
	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestDecrypt_Incompatible(t *testing.T) {
	kp := NewKeyPair(load128(t), nil)
	other := NewKeyPair(load128(t), nil)
	big256 := NewKeyPair(load256(t), nil)

	ct, err := kp.Public.EncryptText(bg, "secret", nil)
	require.NoError(t, err)

	_, err = other.Private.Decrypt(bg, ct, nil)
	require.True(t, xerrors.Is(err, ErrIncompatibleCiphertext))
	_, err = big256.Private.Decrypt(bg, ct, nil)
	require.True(t, xerrors.Is(err, ErrIncompatibleCiphertext))

	// Forcing a decryption with the wrong key never yields the message.
	text, err := other.Private.DecryptText(bg, ct, &DecryptOptions{Force: true})
	require.True(t, err != nil || text != "secret")
}

func TestEncrypt_Canceled(t *testing.T) {
	kp := NewKeyPair(load128(t), nil)
	ctx, cancel := context.WithCancel(bg)
	cancel()

	_, err := kp.Public.EncryptText(ctx, "test", nil)
	require.True(t, xerrors.Is(err, context.Canceled))

	ct, err := kp.Public.EncryptText(bg, "test", nil)
	require.NoError(t, err)
	_, err = kp.Private.Decrypt(ctx, ct, nil)
	require.True(t, xerrors.Is(err, context.Canceled))
}

func TestFormatPlaintext(t *testing.T) {
	msg := bitstream.FromString("ab")
	f, err := FormatPlaintext(msg, 0, 10, nil)
	require.NoError(t, err)
	// 64 + 16 bits is already a multiple of 10.
	require.Equal(t, 80, f.Len())

	f, err = FormatPlaintext(msg, 20, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 160, f.Len())

	out, err := ExtractPayload(f)
	require.NoError(t, err)
	require.True(t, msg.Equal(out))

	bad := bitstream.New()
	bad.WriteUint64(1000)
	bad.WriteString("short")
	_, err = ExtractPayload(bad)
	require.True(t, xerrors.Is(err, ErrMalformedPlaintext))

	_, err = ExtractPayload(bitstream.FromString("tiny"))
	require.True(t, xerrors.Is(err, ErrMalformedPlaintext))
}
