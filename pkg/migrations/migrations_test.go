package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/db?sslmode=disable", driverURL("postgres://u:p@localhost:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@localhost/db", driverURL("postgresql://u:p@localhost/db"))
	assert.Equal(t, "pgx5://already", driverURL("pgx5://already"))
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "000001_create_verification_codes.up.sql")
	assert.Contains(t, names, "000001_create_verification_codes.down.sql")
}
