package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BlobStore = (*BlobStore)(nil)

// BlobStore keeps raw uploads in a BYTEA table until the worker consumes them.
type BlobStore struct {
	db     *DB
	sealer *Sealer
}

// NewBlobStore creates a new BlobStore. sealer may be nil.
func NewBlobStore(db *DB, sealer *Sealer) *BlobStore {
	return &BlobStore{db: db, sealer: sealer}
}

// Put stores data under key, replacing any previous value
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return fmt.Errorf("seal blob: %w", err)
	}

	query := `
		INSERT INTO blobs (key, data, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, created_at = EXCLUDED.created_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, sealed); err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

// Get returns the data for key or domain.ErrNotFound
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = $1`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: blob %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	data, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return data, nil
}

// Delete removes key. Missing keys are not an error.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
