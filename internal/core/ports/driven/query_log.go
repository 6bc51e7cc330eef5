package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// QueryLog records asked questions and aggregates them (PostgreSQL)
type QueryLog interface {
	// Record appends an entry
	Record(ctx context.Context, entry *domain.QueryLogEntry) error

	// Count returns the number of entries since the given time (nil: all time)
	Count(ctx context.Context, tenantID domain.TenantID, since *time.Time) (int, error)

	// TopQuestions returns the most frequent normalised questions since the given time
	TopQuestions(ctx context.Context, tenantID domain.TenantID, since *time.Time, limit int) ([]domain.QuestionCount, error)
}
