package driven

import (
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// AuthAdapter handles authentication cryptographic operations.
// This does NOT handle storage - use SessionStore for session persistence.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Session token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}

// ShareTokenSigner mints and verifies share tokens. Verification is stateless:
// signature and expiry only.
type ShareTokenSigner interface {
	// Issue signs claims for the tenant and returns the token with its expiry
	Issue(tenantID domain.TenantID, name string, version int) (token string, expiresAt time.Time, err error)

	// Verify checks signature and expiry. Returns domain.ErrTokenExpired or
	// domain.ErrTokenInvalid on failure.
	Verify(token string) (*domain.ShareClaims, error)
}
