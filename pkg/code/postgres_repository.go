package code

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const codesTable = "verification_codes"

// PostgresCodeRepository stores codes in the verification_codes table created
// by pkg/migrations.
type PostgresCodeRepository struct {
	db    *pgxpool.Pool
	table string
}

type PostgresOption func(*PostgresCodeRepository)

// WithSchema qualifies the table with schema, so queries do not depend on
// the pool's search_path. An empty schema leaves the table unqualified.
func WithSchema(schema string) PostgresOption {
	return func(r *PostgresCodeRepository) {
		r.table = qualifiedTable(schema)
	}
}

func NewPostgresCodeRepository(db *pgxpool.Pool, opts ...PostgresOption) *PostgresCodeRepository {
	r := &PostgresCodeRepository{db: db, table: codesTable}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func qualifiedTable(schema string) string {
	if schema == "" {
		return codesTable
	}
	return pgx.Identifier{schema, codesTable}.Sanitize()
}

const codeColumns = `id, owner_id, email, code_hash, created_at, fulfilled_at,
	incorrect_attempts, maximum_attempts, maximum_duration_minutes`

func (r *PostgresCodeRepository) FindCodesByEmail(ctx context.Context, email string) ([]*VerificationCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM ` + r.table + `
		WHERE email = $1
		ORDER BY created_at DESC, id::text DESC
	`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*VerificationCode
	for rows.Next() {
		var c VerificationCode
		if err := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.Email,
			&c.CodeHash,
			&c.CreatedAt,
			&c.FulfilledAt,
			&c.IncorrectAttempts,
			&c.MaximumAttempts,
			&c.MaximumDurationMinutes,
		); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		if c.FulfilledAt != nil {
			at := c.FulfilledAt.UTC()
			c.FulfilledAt = &at
		}
		codes = append(codes, &c)
	}

	return codes, rows.Err()
}

// Save upserts on id. Only the mutable columns change on update.
func (r *PostgresCodeRepository) Save(ctx context.Context, code *VerificationCode) (*VerificationCode, error) {
	query := `
		INSERT INTO ` + r.table + ` (` + codeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET fulfilled_at = EXCLUDED.fulfilled_at,
		    incorrect_attempts = EXCLUDED.incorrect_attempts
		RETURNING ` + codeColumns

	id := code.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var c VerificationCode
	err := r.db.QueryRow(ctx, query,
		id,
		code.OwnerID,
		code.Email,
		code.CodeHash,
		code.CreatedAt,
		code.FulfilledAt,
		code.IncorrectAttempts,
		code.MaximumAttempts,
		code.MaximumDurationMinutes,
	).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Email,
		&c.CodeHash,
		&c.CreatedAt,
		&c.FulfilledAt,
		&c.IncorrectAttempts,
		&c.MaximumAttempts,
		&c.MaximumDurationMinutes,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt = c.CreatedAt.UTC()
	if c.FulfilledAt != nil {
		at := c.FulfilledAt.UTC()
		c.FulfilledAt = &at
	}
	return &c, nil
}
