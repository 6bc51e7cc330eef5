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
var _ driven.UploadStore = (*UploadStore)(nil)

const uploadColumns = `tenant_id, namespace, upload_id, file_name, file_size, status,
	pages, chunks, error, started_at, updated_at`

// UploadStore implements driven.UploadStore using PostgreSQL
type UploadStore struct {
	db *DB
}

// NewUploadStore creates a new UploadStore
func NewUploadStore(db *DB) *UploadStore {
	return &UploadStore{db: db}
}

// Get returns the tenant's upload or domain.ErrNotFound
func (s *UploadStore) Get(ctx context.Context, tenantID domain.TenantID) (*domain.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE tenant_id = $1`

	u, err := scanUpload(s.db.QueryRowContext(ctx, query, tenantID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return u, nil
}

// ListStuck returns uploads still processing that started before the cutoff,
// oldest first.
func (s *UploadStore) ListStuck(ctx context.Context, startedBefore time.Time, limit int) ([]*domain.Upload, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + uploadColumns + ` FROM uploads
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, domain.UploadStatusProcessing, startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck uploads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var uploads []*domain.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func scanUpload(row rowScanner) (*domain.Upload, error) {
	var u domain.Upload
	err := row.Scan(
		&u.TenantID,
		&u.Namespace,
		&u.UploadID,
		&u.FileName,
		&u.FileSize,
		&u.Status,
		&u.Pages,
		&u.Chunks,
		&u.Error,
		&u.StartedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// StartProcessing replaces the tenant's row with a processing upload.
func (s *UploadStore) StartProcessing(ctx context.Context, u *domain.Upload) error {
	query := `
		INSERT INTO uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, '', $7, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			upload_id = EXCLUDED.upload_id,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			status = EXCLUDED.status,
			pages = 0,
			chunks = 0,
			error = '',
			started_at = EXCLUDED.started_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		u.TenantID.String(),
		u.Namespace.String(),
		u.UploadID,
		u.FileName,
		u.FileSize,
		domain.UploadStatusProcessing,
		u.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("start upload: %w", err)
	}
	return nil
}

// MarkReady records a finished ingestion for uploadID. Like MarkError it
// only changes a row still processing that upload; an upload already timed
// out stays in error.
func (s *UploadStore) MarkReady(ctx context.Context, tenantID domain.TenantID, uploadID string, result domain.IngestResult) error {
	query := `
		UPDATE uploads
		SET status = $1, pages = $2, chunks = $3, error = '', updated_at = $4
		WHERE tenant_id = $5 AND upload_id = $6 AND status = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		domain.UploadStatusReady,
		result.Pages,
		result.Chunks,
		time.Now(),
		tenantID.String(),
		uploadID,
		domain.UploadStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark upload ready: %w", err)
	}
	return affected(res, domain.ErrSuperseded)
}

// MarkError fails uploadID. Only a row still processing that upload is
// changed, so a late timeout cannot overwrite a finished ingestion.
func (s *UploadStore) MarkError(ctx context.Context, tenantID domain.TenantID, uploadID string, reason string) error {
	query := `
		UPDATE uploads
		SET status = $1, error = $2, updated_at = $3
		WHERE tenant_id = $4 AND upload_id = $5 AND status = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		domain.UploadStatusError,
		reason,
		time.Now(),
		tenantID.String(),
		uploadID,
		domain.UploadStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark upload error: %w", err)
	}
	return affected(res, domain.ErrSuperseded)
}
