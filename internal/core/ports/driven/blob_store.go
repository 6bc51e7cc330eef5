package driven

import "context"

// BlobStore keeps raw uploads between the upload request and the ingest task
type BlobStore interface {
	// Put stores data under key, replacing any previous value
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data for key or domain.ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
