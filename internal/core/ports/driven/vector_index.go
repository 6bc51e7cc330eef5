package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// VectorIndex stores chunk vectors partitioned by namespace.
// No operation may read or write outside the namespace it is given.
type VectorIndex interface {
	// Upsert adds or replaces chunks by chunk ID
	Upsert(ctx context.Context, ns domain.Namespace, chunks []*domain.EmbeddedChunk) error

	// DeleteAll removes every vector in the namespace.
	// A namespace that does not exist yet is not an error.
	DeleteAll(ctx context.Context, ns domain.Namespace) error

	// Search returns the k nearest chunks in the namespace, best first.
	// An empty or unknown namespace yields no results.
	Search(ctx context.Context, ns domain.Namespace, vector []float32, k int) ([]*domain.ScoredChunk, error)

	// Dimensions returns the configured vector size
	Dimensions() int

	// HealthCheck verifies the index is available
	HealthCheck(ctx context.Context) error

	// Close releases resources
	Close() error
}
