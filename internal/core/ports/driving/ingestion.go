package driving

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// UploadService accepts brochure uploads and reports their status
type UploadService interface {
	// Upload stores the file, marks the tenant processing and schedules
	// ingestion. It returns without waiting for ingestion.
	Upload(ctx context.Context, ref domain.TenantRef, req UploadRequest) (*domain.Upload, error)

	// Status returns the tenant's document status. A tenant that never
	// uploaded reports idle.
	Status(ctx context.Context, ref domain.TenantRef) (*domain.UploadStatusView, error)
}

// UploadRequest is a received file
type UploadRequest struct {
	FileName string
	Data     []byte
}

// IngestionService runs the parse, chunk, embed and index-replace pipeline
type IngestionService interface {
	// Ingest replaces the namespace content with the chunks of one document.
	// Delete-all completes before any upsert.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)

	// ProcessTask runs an ingest task end to end: tenant lock, supersede
	// check, Ingest and the status transition.
	ProcessTask(ctx context.Context, task *domain.Task) (*domain.TaskResult, error)
}

// IngestRequest is one document to ingest
type IngestRequest struct {
	Namespace domain.Namespace
	UploadID  string
	FileName  string
	Data      []byte
}
