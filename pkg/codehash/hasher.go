package codehash

import (
	"errors"
	"fmt"
	"strings"
)

const (
	AlgorithmBcrypt = "bcrypt"
	AlgorithmArgon2 = "argon2id"
)

var (
	// ErrEmptyInput is returned when either the code or the stored hash is empty.
	ErrEmptyInput = errors.New("code and hash cannot be empty")

	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid code hash format")
)

// Hasher hashes verification codes and checks submissions against stored hashes.
//
// Matches returns (false, nil) for a well-formed hash that does not match; an
// error means the comparison itself could not be carried out.
type Hasher interface {
	Hash(code string) (string, error)
	Matches(code, hash string) (bool, error)
}

// NewHasher returns the Hasher registered under algorithm.
// An empty algorithm selects bcrypt.
func NewHasher(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmBcrypt:
		return NewBcryptHasher(0), nil
	case AlgorithmArgon2, "argon2":
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported code hasher: %s", algorithm)
	}
}
