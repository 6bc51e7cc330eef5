package driving

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// TenantResolver maps a caller identity to its tenant namespace.
// Both paths normalise through domain.NewTenantID and therefore agree on
// the namespace for the same tenant.
type TenantResolver interface {
	// FromSession resolves an authenticated operator session
	FromSession(auth *domain.AuthContext) (domain.TenantRef, error)

	// FromShareToken verifies a share token and resolves its tenant.
	// Invalid or expired tokens return domain.ErrUnauthorized.
	FromShareToken(ctx context.Context, token string) (domain.TenantRef, error)
}

// ShareLinkService issues the public chat link for a tenant
type ShareLinkService interface {
	// Link returns the persisted share link, minting it on first use
	Link(ctx context.Context, ref domain.TenantRef) (string, error)

	// Regenerate mints and persists a new link, orphaning the old one
	Regenerate(ctx context.Context, ref domain.TenantRef) (string, error)
}
