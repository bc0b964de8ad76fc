package svelib

import (
	"io"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
)

// SecurityLevel selects one of the predefined parameter sets.
type SecurityLevel int

// The security levels, from fastest to strongest. Insecure must only be
// used in tests.
const (
	Insecure SecurityLevel = iota
	Lowest
	Low
	Normal
	High
	Highest
	Overkill
)

var levelNames = []string{"insecure", "lowest", "low", "normal", "high", "highest", "overkill"}

func (l SecurityLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseSecurityLevel returns the level with the given name, case is ignored.
func ParseSecurityLevel(name string) (SecurityLevel, error) {
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			return SecurityLevel(i), nil
		}
	}
	return 0, xerrors.Errorf("unknown security level %q: %w", name, ErrInvalidParams)
}

// ErrInvalidParams is returned when a parameter set is not usable.
var ErrInvalidParams = xerrors.New("invalid security parameters")

// Params holds the global tunables of the library. MinimumBitSize is
// enforced when cryptosystems are generated or loaded, DefaultBitSize is
// what tools use when no size is given. The two probabilities bound the
// chance that a composite passes as a prime: the first one when primes are
// generated, the second one when a loaded prime is verified.
type Params struct {
	Level                                SecurityLevel
	MinimumBitSize                       int
	DefaultBitSize                       int
	FalsePositiveProbability             float64
	VerificationFalsePositiveProbability float64
}

// DefaultParams returns the parameter set of the given level. Unknown
// levels fall back to Normal.
func DefaultParams(level SecurityLevel) Params {
	p := Params{Level: level}
	switch level {
	case Insecure:
		p.MinimumBitSize, p.DefaultBitSize = 0, 128
		p.FalsePositiveProbability = 1e-6
	case Lowest:
		p.MinimumBitSize, p.DefaultBitSize = 1024, 1024
		p.FalsePositiveProbability = 1e-6
	case Low:
		p.MinimumBitSize, p.DefaultBitSize = 2048, 2048
		p.FalsePositiveProbability = 1e-6
	case High:
		p.MinimumBitSize, p.DefaultBitSize = 3072, 8192
		p.FalsePositiveProbability = math.Pow(2, -256)
	case Highest:
		p.MinimumBitSize, p.DefaultBitSize = 4096, 15360
		p.FalsePositiveProbability = math.Pow(2, -256)
	case Overkill:
		p.MinimumBitSize, p.DefaultBitSize = 8192, 65536
		p.FalsePositiveProbability = math.Pow(2, -512)
	default:
		p.Level = Normal
		p.MinimumBitSize, p.DefaultBitSize = 2048, 4096
		p.FalsePositiveProbability = math.Pow(2, -128)
	}
	p.VerificationFalsePositiveProbability = p.FalsePositiveProbability
	return p
}

// Validate checks that the parameters are consistent.
func (p Params) Validate() error {
	if p.MinimumBitSize < 0 {
		return xerrors.Errorf("negative minimum bit size: %w", ErrInvalidParams)
	}
	if p.DefaultBitSize < p.MinimumBitSize {
		return xerrors.Errorf("default bit size %d below minimum %d: %w", p.DefaultBitSize, p.MinimumBitSize, ErrInvalidParams)
	}
	for _, prob := range []float64{p.FalsePositiveProbability, p.VerificationFalsePositiveProbability} {
		if !(prob > 0 && prob <= 1) {
			return xerrors.Errorf("probability %g outside (0, 1]: %w", prob, ErrInvalidParams)
		}
	}
	return nil
}

// PrimalityRounds is the number of Miller-Rabin rounds needed to keep the
// false positive rate of generated primes under FalsePositiveProbability.
func (p Params) PrimalityRounds() int {
	return roundsFor(p.FalsePositiveProbability)
}

// VerificationRounds is PrimalityRounds for primes that are loaded rather
// than generated.
func (p Params) VerificationRounds() int {
	return roundsFor(p.VerificationFalsePositiveProbability)
}

// Each Miller-Rabin round lets a composite through with probability at
// most 1/4.
func roundsFor(prob float64) int {
	if prob <= 0 || prob >= 1 {
		return 1
	}
	r := int(math.Ceil(-math.Log2(prob) / 2))
	if r < 1 {
		r = 1
	}
	return r
}

// paramsFile is the TOML layout: a level and optional overrides.
type paramsFile struct {
	Level                                string  `toml:"level"`
	MinimumBitSize                       int     `toml:"minimum_bit_size"`
	DefaultBitSize                       int     `toml:"default_bit_size"`
	FalsePositiveProbability             float64 `toml:"false_positive_probability"`
	VerificationFalsePositiveProbability float64 `toml:"verification_false_positive_probability"`
}

// LoadParams reads a TOML parameter file.
func LoadParams(path string) (Params, error) {
	var f paramsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return Params{}, Annotate(err, "decode "+path)
	}
	return f.params(md)
}

// DecodeParams parses TOML parameters from a string.
func DecodeParams(text string) (Params, error) {
	var f paramsFile
	md, err := toml.Decode(text, &f)
	if err != nil {
		return Params{}, Annotate(err, "decode params")
	}
	return f.params(md)
}

func (f paramsFile) params(md toml.MetaData) (Params, error) {
	level := Normal
	if md.IsDefined("level") {
		var err error
		level, err = ParseSecurityLevel(f.Level)
		if err != nil {
			return Params{}, err
		}
	}
	p := DefaultParams(level)
	if md.IsDefined("minimum_bit_size") {
		p.MinimumBitSize = f.MinimumBitSize
	}
	if md.IsDefined("default_bit_size") {
		p.DefaultBitSize = f.DefaultBitSize
	}
	if md.IsDefined("false_positive_probability") {
		p.FalsePositiveProbability = f.FalsePositiveProbability
		if !md.IsDefined("verification_false_positive_probability") {
			p.VerificationFalsePositiveProbability = f.FalsePositiveProbability
		}
	}
	if md.IsDefined("verification_false_positive_probability") {
		p.VerificationFalsePositiveProbability = f.VerificationFalsePositiveProbability
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// EncodeTOML writes the parameters in the format read by LoadParams.
func (p Params) EncodeTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(paramsFile{
		Level:                                p.Level.String(),
		MinimumBitSize:                       p.MinimumBitSize,
		DefaultBitSize:                       p.DefaultBitSize,
		FalsePositiveProbability:             p.FalsePositiveProbability,
		VerificationFalsePositiveProbability: p.VerificationFalsePositiveProbability,
	})
}
