package svelib

import (
	"bytes"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestParams_Defaults(t *testing.T) {
	tests := []struct {
		level    SecurityLevel
		min, def int
		prob     float64
	}{
		{Insecure, 0, 128, 1e-6},
		{Lowest, 1024, 1024, 1e-6},
		{Low, 2048, 2048, 1e-6},
		{Normal, 2048, 4096, math.Pow(2, -128)},
		{High, 3072, 8192, math.Pow(2, -256)},
		{Highest, 4096, 15360, math.Pow(2, -256)},
		{Overkill, 8192, 65536, math.Pow(2, -512)},
	}
	for _, tt := range tests {
		p := DefaultParams(tt.level)
		assert.Equal(t, tt.level, p.Level)
		assert.Equal(t, tt.min, p.MinimumBitSize, tt.level.String())
		assert.Equal(t, tt.def, p.DefaultBitSize, tt.level.String())
		assert.Equal(t, tt.prob, p.FalsePositiveProbability, tt.level.String())
		assert.NoError(t, p.Validate())
	}
	assert.Equal(t, Normal, DefaultParams(SecurityLevel(42)).Level)
}

func TestParams_Rounds(t *testing.T) {
	assert.Equal(t, 10, DefaultParams(Insecure).PrimalityRounds())
	assert.Equal(t, 64, DefaultParams(Normal).PrimalityRounds())
	assert.Equal(t, 256, DefaultParams(Overkill).VerificationRounds())
	assert.Equal(t, 1, roundsFor(1))
}

func TestParams_Validate(t *testing.T) {
	p := DefaultParams(Low)
	p.DefaultBitSize = 1024
	require.True(t, xerrors.Is(p.Validate(), ErrInvalidParams))

	p = DefaultParams(Low)
	p.FalsePositiveProbability = 0
	require.True(t, xerrors.Is(p.Validate(), ErrInvalidParams))

	p = DefaultParams(Low)
	p.MinimumBitSize = -8
	require.True(t, xerrors.Is(p.Validate(), ErrInvalidParams))
}

func TestParams_Decode(t *testing.T) {
	p, err := DecodeParams(`level = "high"`)
	require.NoError(t, err)
	require.Equal(t, DefaultParams(High), p)

	p, err = DecodeParams(`
level = "insecure"
default_bit_size = 256
false_positive_probability = 1e-9
`)
	require.NoError(t, err)
	require.Equal(t, 0, p.MinimumBitSize)
	require.Equal(t, 256, p.DefaultBitSize)
	require.Equal(t, 1e-9, p.FalsePositiveProbability)
	require.Equal(t, 1e-9, p.VerificationFalsePositiveProbability)

	_, err = DecodeParams(`level = "paranoid"`)
	require.True(t, xerrors.Is(err, ErrInvalidParams))

	_, err = DecodeParams(`level = "low"
default_bit_size = 512`)
	require.True(t, xerrors.Is(err, ErrInvalidParams))

	_, err = DecodeParams(`level = `)
	require.Error(t, err)
}

// Test that the encoded parameters are read back identically from a file.
func TestParams_FileRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "svelib")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	p := DefaultParams(Highest)
	p.VerificationFalsePositiveProbability = 1e-12
	buf := &bytes.Buffer{}
	require.NoError(t, p.EncodeTOML(buf))

	path := filepath.Join(dir, "params.toml")
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))

	loaded, err := LoadParams(path)
	require.NoError(t, err)
	require.Equal(t, p, loaded)

	_, err = LoadParams(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}

func TestSecurityLevel_Parse(t *testing.T) {
	l, err := ParseSecurityLevel("OverKill")
	require.NoError(t, err)
	require.Equal(t, Overkill, l)
	require.Equal(t, "unknown", SecurityLevel(-1).String())
}
