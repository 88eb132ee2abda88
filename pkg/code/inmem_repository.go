package code

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryCodeRepository keeps codes in process memory. Data is lost on restart.
type InMemoryCodeRepository struct {
	mu      sync.RWMutex
	codes   map[uuid.UUID]*VerificationCode
	byEmail map[string][]uuid.UUID
}

func NewInMemoryCodeRepository() *InMemoryCodeRepository {
	return &InMemoryCodeRepository{
		codes:   make(map[uuid.UUID]*VerificationCode),
		byEmail: make(map[string][]uuid.UUID),
	}
}

func (r *InMemoryCodeRepository) FindCodesByEmail(ctx context.Context, email string) ([]*VerificationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byEmail[email]
	codes := make([]*VerificationCode, 0, len(ids))
	for _, id := range ids {
		codes = append(codes, copyCode(r.codes[id]))
	}
	sortNewestFirst(codes)
	return codes, nil
}

func (r *InMemoryCodeRepository) Save(ctx context.Context, code *VerificationCode) (*VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyCode(code)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if _, exists := r.codes[stored.ID]; !exists {
		r.byEmail[stored.Email] = append(r.byEmail[stored.Email], stored.ID)
	}
	r.codes[stored.ID] = stored

	return copyCode(stored), nil
}
