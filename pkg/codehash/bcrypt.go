package codehash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes codes with bcrypt. Bcrypt embeds its own salt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher using cost, or bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(code string) (string, error) {
	if code == "" {
		return "", ErrEmptyInput
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Matches(code, hash string) (bool, error) {
	if code == "" || hash == "" {
		return false, ErrEmptyInput
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
