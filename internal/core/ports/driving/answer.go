package driving

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// AnswerService produces grounded answers from a tenant namespace
type AnswerService interface {
	// Answer retrieves the top passages and asks the language model.
	// Empty retrieval short-circuits to domain.FallbackAnswer.
	Answer(ctx context.Context, ns domain.Namespace, q domain.Question) (*domain.Answer, error)
}

// ChatService answers a resolved tenant's question and logs it
type ChatService interface {
	// Ask answers the question. Query logging is best-effort.
	Ask(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error)
}

// AnalyticsService aggregates the query log
type AnalyticsService interface {
	// Summary returns totals and top questions for the range
	Summary(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error)
}
