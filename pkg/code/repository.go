package code

import (
	"context"
	"sort"
)

// CodeRepository persists verification codes. Implementations are expected to
// make each call atomic on its own; callers serialize across calls with a Locker.
type CodeRepository interface {
	// FindCodesByEmail returns every code ever issued for email, active or not,
	// newest first.
	FindCodesByEmail(ctx context.Context, email string) ([]*VerificationCode, error)

	// Save inserts the code when its ID is zero (assigning one) and updates it
	// otherwise. The returned value is a copy owned by the caller.
	Save(ctx context.Context, code *VerificationCode) (*VerificationCode, error)
}

// sortNewestFirst orders codes by CreatedAt descending, breaking ties on ID.
func sortNewestFirst(codes []*VerificationCode) {
	sort.SliceStable(codes, func(i, j int) bool {
		if !codes[i].CreatedAt.Equal(codes[j].CreatedAt) {
			return codes[i].CreatedAt.After(codes[j].CreatedAt)
		}
		return codes[i].ID.String() > codes[j].ID.String()
	})
}

func copyCode(c *VerificationCode) *VerificationCode {
	cp := *c
	if c.OwnerID != nil {
		owner := *c.OwnerID
		cp.OwnerID = &owner
	}
	if c.FulfilledAt != nil {
		at := *c.FulfilledAt
		cp.FulfilledAt = &at
	}
	return &cp
}
