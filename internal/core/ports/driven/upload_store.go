package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// UploadStore persists the one Upload row per tenant (PostgreSQL).
// Transitions out of processing are conditioned on the upload id so a
// superseded ingestion can never overwrite the status of a newer upload.
type UploadStore interface {
	// Get returns the tenant's upload or domain.ErrNotFound
	Get(ctx context.Context, tenantID domain.TenantID) (*domain.Upload, error)

	// StartProcessing upserts the row with a new upload id and status processing
	StartProcessing(ctx context.Context, upload *domain.Upload) error

	// ListStuck returns processing uploads started before the cutoff
	ListStuck(ctx context.Context, startedBefore time.Time, limit int) ([]*domain.Upload, error)

	// MarkReady records a successful ingestion. Returns domain.ErrSuperseded
	// when uploadID is no longer current.
	MarkReady(ctx context.Context, tenantID domain.TenantID, uploadID string, result domain.IngestResult) error

	// MarkError records a failed ingestion. Returns domain.ErrSuperseded
	// when uploadID is no longer current or no longer processing.
	MarkError(ctx context.Context, tenantID domain.TenantID, uploadID string, reason string) error
}
