package elgamal

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestCiphertext(t *testing.T) {
	blocks := []Block{
		{Gamma: big.NewInt(3), Delta: big.NewInt(4)},
		{Gamma: big.NewInt(5), Delta: big.NewInt(6)},
	}
	ct, err := NewCiphertext(8, "fp", blocks)
	require.NoError(t, err)
	require.Equal(t, 2, ct.Len())
	require.Equal(t, 8, ct.BitSize())
	require.Equal(t, "fp", ct.PublicKeyFingerprint())

	// Neither the input nor the accessors share memory with the ciphertext.
	blocks[0].Gamma.SetInt64(100)
	ct.Block(1).Delta.SetInt64(100)
	require.Equal(t, int64(3), ct.Block(0).Gamma.Int64())
	require.Equal(t, int64(6), ct.Blocks()[1].Delta.Int64())

	same, err := NewCiphertext(8, "fp", []Block{
		{Gamma: big.NewInt(3), Delta: big.NewInt(4)},
		{Gamma: big.NewInt(5), Delta: big.NewInt(6)},
	})
	require.NoError(t, err)
	require.True(t, ct.Equal(same))
	require.Equal(t, ct.Fingerprint(), same.Fingerprint())

	other, err := NewCiphertext(8, "other", same.Blocks())
	require.NoError(t, err)
	require.False(t, ct.Equal(other))
	short, err := NewCiphertext(8, "fp", same.Blocks()[:1])
	require.NoError(t, err)
	require.False(t, ct.Equal(short))
	require.NotEqual(t, ct.Fingerprint(), short.Fingerprint())
}

func TestCiphertext_Invalid(t *testing.T) {
	_, err := NewCiphertext(8, "fp", []Block{{Gamma: big.NewInt(256), Delta: big.NewInt(1)}})
	require.True(t, xerrors.Is(err, ErrBlockTooLarge))
	_, err = NewCiphertext(8, "fp", []Block{{Gamma: big.NewInt(1)}})
	require.True(t, xerrors.Is(err, ErrBlockTooLarge))
	_, err = NewCiphertext(8, "fp", []Block{{Gamma: big.NewInt(-1), Delta: big.NewInt(1)}})
	require.True(t, xerrors.Is(err, ErrBlockTooLarge))
}
