package services

import (
	"context"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure analyticsService implements AnalyticsService
var _ driving.AnalyticsService = (*analyticsService)(nil)

type analyticsService struct {
	queryLog driven.QueryLog
	now      func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(queryLog driven.QueryLog) driving.AnalyticsService {
	return &analyticsService{queryLog: queryLog, now: time.Now}
}

// Summary returns question totals for the range and all time, plus the
// most frequent normalised questions in the range.
func (s *analyticsService) Summary(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error) {
	since := r.Since(s.now())

	totalRange, err := s.queryLog.Count(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	totalAll := totalRange
	if since != nil {
		if totalAll, err = s.queryLog.Count(ctx, tenantID, nil); err != nil {
			return nil, err
		}
	}

	top, err := s.queryLog.TopQuestions(ctx, tenantID, since, domain.TopQuestionsLimit)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []domain.QuestionCount{}
	}

	return &domain.Analytics{
		Range:      r,
		TotalRange: totalRange,
		TotalAll:   totalAll,
		Top:        top,
	}, nil
}
