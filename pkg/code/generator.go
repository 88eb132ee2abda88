package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generator produces the plaintext for a new code.
type Generator interface {
	Generate(length int) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(length int) (string, error)

func (f GeneratorFunc) Generate(length int) (string, error) {
	return f(length)
}

// DigitGenerator draws each digit independently and uniformly from crypto/rand.
type DigitGenerator struct{}

var ten = big.NewInt(10)

func (DigitGenerator) Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("%w: code length must be positive", ErrInvalidInput)
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
