package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockQueryLog implements QueryLog
var _ driven.QueryLog = (*MockQueryLog)(nil)

// MockQueryLog is an in-memory QueryLog aggregating like the SQL store
type MockQueryLog struct {
	mu      sync.Mutex
	Entries []domain.QueryLogEntry

	RecordErr error
}

// NewMockQueryLog creates a new MockQueryLog
func NewMockQueryLog() *MockQueryLog {
	return &MockQueryLog{}
}

func (m *MockQueryLog) Record(ctx context.Context, entry *domain.QueryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.Entries = append(m.Entries, e)
	return nil
}

func (m *MockQueryLog) Count(ctx context.Context, tenantID domain.TenantID, since *time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(tenantID, since)), nil
}

func (m *MockQueryLog) TopQuestions(ctx context.Context, tenantID domain.TenantID, since *time.Time, limit int) ([]domain.QuestionCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = domain.TopQuestionsLimit
	}

	counts := make(map[string]int)
	for _, e := range m.matching(tenantID, since) {
		counts[domain.NormalizeQuestion(e.Question)]++
	}
	top := make([]domain.QuestionCount, 0, len(counts))
	for q, n := range counts {
		top = append(top, domain.QuestionCount{Question: q, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Question < top[j].Question
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (m *MockQueryLog) matching(tenantID domain.TenantID, since *time.Time) []domain.QueryLogEntry {
	var out []domain.QueryLogEntry
	for _, e := range m.Entries {
		if e.TenantID != tenantID {
			continue
		}
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, e)
	}
	return out
}
