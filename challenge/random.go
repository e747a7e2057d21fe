package challenge

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// minEntropyBits is the BR-mandated floor for random values.
const minEntropyBits = 112

// DefaultCharset is the alphabet used by the default generator.
const DefaultCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the value length used by the default generator.
// 32 characters over a 62-symbol alphabet carry 190 bits of entropy,
// comfortably above the 112-bit floor.
const DefaultLength = 32

// ContainsValidator is the default RandomValidator: a case-sensitive
// substring containment check.
type ContainsValidator struct{}

var _ RandomValidator = ContainsValidator{}

// Validate reports whether value occurs in body.
func (ContainsValidator) Validate(value, body string) Result {
	if body == "" {
		return Result{Errs: []error{ErrEmptyBody}}
	}
	if value == "" || !strings.Contains(body, value) {
		return Result{Errs: []error{fmt.Errorf("%w: random value", ErrNotFound)}}
	}
	return Result{Value: value}
}

// CharsetGenerator draws uniformly from a fixed charset. Use
// NewCharsetGenerator to construct one; the constructor enforces the
// entropy floor.
type CharsetGenerator struct {
	charset string
	length  int
}

var _ Generator = (*CharsetGenerator)(nil)

// NewCharsetGenerator builds a generator for the given charset and value
// length. The configuration is rejected if length × log2(len(charset)),
// with fractional bits floored, is below 112 bits.
func NewCharsetGenerator(charset string, length int) (*CharsetGenerator, error) {
	if len(charset) < 2 || length <= 0 {
		return nil, fmt.Errorf("%w: charset of %d symbols, length %d", ErrInsufficientEntropy, len(charset), length)
	}
	bits := EntropyBits(charset, length)
	if bits < minEntropyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrInsufficientEntropy, bits)
	}
	return &CharsetGenerator{charset: charset, length: length}, nil
}

// NewDefaultGenerator builds the stock alphanumeric generator.
func NewDefaultGenerator() *CharsetGenerator {
	g, err := NewCharsetGenerator(DefaultCharset, DefaultLength)
	if err != nil {
		// Unreachable with the package defaults.
		panic(err)
	}
	return g
}

// EntropyBits computes the whole bits of entropy of a generated value:
// length × log2(charset size), fractional bits floored.
func EntropyBits(charset string, length int) int {
	if len(charset) < 2 || length <= 0 {
		return 0
	}
	return int(math.Floor(float64(length) * math.Log2(float64(len(charset)))))
}

// Generate returns a fresh random value.
func (g *CharsetGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.charset)))
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("challenge: reading randomness: %w", err)
		}
		b.WriteByte(g.charset[n.Int64()])
	}
	return b.String(), nil
}
