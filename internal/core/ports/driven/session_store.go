package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// SessionStore handles session persistence (Redis or PostgreSQL)
type SessionStore interface {
	// Save stores a session with TTL based on ExpiresAt
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*domain.Session, error)

	// GetByToken retrieves a session by token value
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// Delete deletes a session
	Delete(ctx context.Context, id string) error

	// DeleteByToken deletes a session by token
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByOperator deletes all sessions for an operator (logout everywhere)
	DeleteByOperator(ctx context.Context, operatorID string) error
}
