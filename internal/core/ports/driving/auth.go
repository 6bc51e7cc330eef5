package driving

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// AuthService handles operator authentication
type AuthService interface {
	// Authenticate validates credentials and creates a session
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken validates a session JWT and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// Logout invalidates a session
	Logout(ctx context.Context, token string) error

	// LogoutAll invalidates all sessions for an operator
	LogoutAll(ctx context.Context, operatorID string) error

	// CreateOperator provisions an operator account
	CreateOperator(ctx context.Context, req domain.CreateOperatorRequest) (*domain.OperatorSummary, error)
}
