package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// DocumentParser extracts per-page text from an uploaded file
type DocumentParser interface {
	// Parse returns pages in order. Pages with no extractable text are kept
	// with empty Text so page numbers stay aligned.
	Parse(ctx context.Context, data []byte) ([]domain.Page, error)
}
