package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// OperatorStore handles operator persistence (PostgreSQL)
type OperatorStore interface {
	// Save creates or updates an operator
	Save(ctx context.Context, op *domain.Operator) error

	// Get retrieves an operator by ID
	Get(ctx context.Context, id string) (*domain.Operator, error)

	// GetByEmail retrieves an operator by normalised email
	GetByEmail(ctx context.Context, email string) (*domain.Operator, error)

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, id string) error
}
