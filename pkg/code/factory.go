package code

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating a code repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool
	// Schema qualifies the PostgreSQL table; empty uses the search_path
	Schema string
	// DataDir is required for file-based repositories
	DataDir string
}

// NewCodeRepository creates a code repository based on the persistence type
func NewCodeRepository(persistenceType string, config RepositoryConfig) (CodeRepository, error) {
	switch persistenceType {
	case "", "memory", "inmem":
		return NewInMemoryCodeRepository(), nil
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresCodeRepository(config.Pool, WithSchema(config.Schema)), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileCodeRepository(config.DataDir)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: memory, file, postgres)", persistenceType)
	}
}
