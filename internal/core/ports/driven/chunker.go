package driven

import "github.com/custodia-labs/brochurebot/internal/core/domain"

// Chunker splits extracted pages into overlapping passages.
// Same input always yields the same chunk sequence.
type Chunker interface {
	// Split returns chunks with Page, Position and Content set.
	// Empty input yields no chunks.
	Split(pages []domain.Page) []*domain.Chunk
}
