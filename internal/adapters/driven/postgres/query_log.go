package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QueryLog = (*QueryLog)(nil)

// QueryLog implements driven.QueryLog using PostgreSQL.
// Questions are grouped by their normalised form.
type QueryLog struct {
	db *DB
}

// NewQueryLog creates a new QueryLog
func NewQueryLog(db *DB) *QueryLog {
	return &QueryLog{db: db}
}

// Record appends an entry
func (l *QueryLog) Record(ctx context.Context, entry *domain.QueryLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO query_log (tenant_id, question, normalized, public, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := l.db.ExecContext(ctx, query,
		entry.TenantID.String(),
		entry.Question,
		domain.NormalizeQuestion(entry.Question),
		entry.Public,
		entry.Fallback,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Count returns the number of entries since the given time (nil: all time)
func (l *QueryLog) Count(ctx context.Context, tenantID domain.TenantID, since *time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM query_log
		WHERE tenant_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
	`
	var n int
	if err := l.db.QueryRowContext(ctx, query, tenantID.String(), NullTime(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queries: %w", err)
	}
	return n, nil
}

// TopQuestions returns the most frequent normalised questions, most asked
// first and alphabetical among ties.
func (l *QueryLog) TopQuestions(ctx context.Context, tenantID domain.TenantID, since *time.Time, limit int) ([]domain.QuestionCount, error) {
	if limit <= 0 {
		limit = domain.TopQuestionsLimit
	}

	query := `
		SELECT normalized, COUNT(*) AS n FROM query_log
		WHERE tenant_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
		GROUP BY normalized
		ORDER BY n DESC, normalized ASC
		LIMIT $3
	`
	rows, err := l.db.QueryContext(ctx, query, tenantID.String(), NullTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("top questions: %w", err)
	}
	defer rows.Close()

	top := make([]domain.QuestionCount, 0, limit)
	for rows.Next() {
		var qc domain.QuestionCount
		if err := rows.Scan(&qc.Question, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan top question: %w", err)
		}
		top = append(top, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top questions: %w", err)
	}
	return top, nil
}
