package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OperatorStore = (*OperatorStore)(nil)

const operatorColumns = `id, email, password_hash, name, active, created_at, updated_at, last_login_at`

// OperatorStore implements driven.OperatorStore using PostgreSQL
type OperatorStore struct {
	db *DB
}

// NewOperatorStore creates a new OperatorStore
func NewOperatorStore(db *DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// Save creates or updates an operator. A different operator holding the same
// email yields domain.ErrAlreadyExists.
func (s *OperatorStore) Save(ctx context.Context, op *domain.Operator) error {
	query := `
		INSERT INTO operators (` + operatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			last_login_at = EXCLUDED.last_login_at
	`

	_, err := s.db.ExecContext(ctx, query,
		op.ID,
		op.Email,
		op.PasswordHash,
		op.Name,
		op.Active,
		op.CreatedAt,
		op.UpdatedAt,
		NullTime(op.LastLoginAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: operator %s", domain.ErrAlreadyExists, op.Email)
	}
	return err
}

// Get retrieves an operator by ID
func (s *OperatorStore) Get(ctx context.Context, id string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	return scanOperator(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an operator by email
func (s *OperatorStore) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE email = $1`
	return scanOperator(s.db.QueryRowContext(ctx, query, email))
}

// UpdateLastLogin updates the last login timestamp
func (s *OperatorStore) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE operators SET last_login_at = $1, updated_at = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return affected(result, domain.ErrNotFound)
}

func scanOperator(row *sql.Row) (*domain.Operator, error) {
	var op domain.Operator
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&op.ID,
		&op.Email,
		&op.PasswordHash,
		&op.Name,
		&op.Active,
		&op.CreatedAt,
		&op.UpdatedAt,
		&lastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	op.LastLoginAt = TimePtr(lastLoginAt)
	return &op, nil
}
