package code

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const codesFileName = "verification_codes.json"

// FileCodeRepository stores codes in a JSON file under dataDir. Every write
// rewrites the whole file through a temp file and rename.
type FileCodeRepository struct {
	dataDir string
	codes   map[uuid.UUID]*VerificationCode
	mutex   sync.RWMutex
}

type codeData struct {
	Codes []*VerificationCode `json:"codes"`
}

func NewFileCodeRepository(dataDir string) (*FileCodeRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileCodeRepository{
		dataDir: dataDir,
		codes:   make(map[uuid.UUID]*VerificationCode),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileCodeRepository) FindCodesByEmail(ctx context.Context, email string) ([]*VerificationCode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var codes []*VerificationCode
	for _, c := range r.codes {
		if c.Email == email {
			codes = append(codes, copyCode(c))
		}
	}
	sortNewestFirst(codes)
	return codes, nil
}

func (r *FileCodeRepository) Save(ctx context.Context, code *VerificationCode) (*VerificationCode, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := copyCode(code)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}

	previous, existed := r.codes[stored.ID]
	r.codes[stored.ID] = stored

	if err := r.save(); err != nil {
		if existed {
			r.codes[stored.ID] = previous
		} else {
			delete(r.codes, stored.ID)
		}
		return nil, fmt.Errorf("failed to save: %w", err)
	}

	return copyCode(stored), nil
}

func (r *FileCodeRepository) load() error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, codesFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var stored codeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	for _, c := range stored.Codes {
		r.codes[c.ID] = c
	}
	return nil
}

// save writes all codes to disk atomically. Callers hold the write lock.
func (r *FileCodeRepository) save() error {
	codes := make([]*VerificationCode, 0, len(r.codes))
	for _, c := range r.codes {
		codes = append(codes, c)
	}
	sortNewestFirst(codes)

	jsonData, err := json.MarshalIndent(codeData{Codes: codes}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, codesFileName+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, filepath.Join(r.dataDir, codesFileName)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
