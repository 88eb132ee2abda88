package code

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VerificationCode is a single issued code. Only the hash of the plaintext is
// ever stored.
type VerificationCode struct {
	ID                     uuid.UUID  `json:"id"`
	OwnerID                *uuid.UUID `json:"owner_id,omitempty"`
	Email                  string     `json:"email"`
	CodeHash               string     `json:"code_hash"`
	CreatedAt              time.Time  `json:"created_at"`
	FulfilledAt            *time.Time `json:"fulfilled_at,omitempty"`
	IncorrectAttempts      int        `json:"incorrect_attempts"`
	MaximumAttempts        int        `json:"maximum_attempts"`
	MaximumDurationMinutes int        `json:"maximum_duration_minutes"`
}

// NewVerificationCode builds an unsaved code with a zero attempt counter.
func NewVerificationCode(ownerID *uuid.UUID, email, codeHash string, createdAt time.Time, maximumAttempts, maximumDurationMinutes int) (*VerificationCode, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if codeHash == "" {
		return nil, fmt.Errorf("%w: code hash is required", ErrInvalidInput)
	}
	if maximumAttempts < 1 {
		return nil, fmt.Errorf("%w: maximum attempts must be at least 1", ErrInvalidInput)
	}
	if maximumDurationMinutes < 1 {
		return nil, fmt.Errorf("%w: maximum duration must be at least 1 minute", ErrInvalidInput)
	}

	return &VerificationCode{
		OwnerID:                ownerID,
		Email:                  email,
		CodeHash:               codeHash,
		CreatedAt:              createdAt.UTC(),
		MaximumAttempts:        maximumAttempts,
		MaximumDurationMinutes: maximumDurationMinutes,
	}, nil
}

func (c *VerificationCode) Duration() time.Duration {
	return time.Duration(c.MaximumDurationMinutes) * time.Minute
}

func (c *VerificationCode) ExpiresAt() time.Time {
	return c.CreatedAt.Add(c.Duration())
}

func (c *VerificationCode) IsFulfilled() bool {
	return c.FulfilledAt != nil
}

// IsExpired reports whether the validity window has closed at now.
// A code is expired from the instant CreatedAt+duration onwards.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.Sub(c.CreatedAt) >= c.Duration()
}

func (c *VerificationCode) IsExhausted() bool {
	return c.IncorrectAttempts >= c.MaximumAttempts
}

// IsActive reports whether the code can still be verified at now.
func (c *VerificationCode) IsActive(now time.Time) bool {
	return !c.IsFulfilled() && !c.IsExpired(now) && !c.IsExhausted()
}

// RemainingAttempts never goes below zero.
func (c *VerificationCode) RemainingAttempts() int {
	if remaining := c.MaximumAttempts - c.IncorrectAttempts; remaining > 0 {
		return remaining
	}
	return 0
}

func (c *VerificationCode) IncrementIncorrectAttempts() {
	c.IncorrectAttempts++
}

func (c *VerificationCode) Fulfill(now time.Time) {
	at := now.UTC()
	c.FulfilledAt = &at
}

// IsOwnedBy reports whether the code was issued for ownerID. A code with no
// recorded owner belongs to nobody.
func (c *VerificationCode) IsOwnedBy(ownerID uuid.UUID) bool {
	return c.OwnerID != nil && *c.OwnerID == ownerID
}

// CodeResponse is the caller-facing view of a code. It never carries the
// plaintext or the hash.
type CodeResponse struct {
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	MaximumAttempts   int       `json:"maximum_attempts"`
	RemainingAttempts int       `json:"remaining_attempts"`
}

func NewCodeResponse(c *VerificationCode) CodeResponse {
	return CodeResponse{
		CreatedAt:         c.CreatedAt,
		ExpiresAt:         c.ExpiresAt(),
		MaximumAttempts:   c.MaximumAttempts,
		RemainingAttempts: c.RemainingAttempts(),
	}
}
