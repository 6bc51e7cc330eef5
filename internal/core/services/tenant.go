package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure tenantResolver implements TenantResolver
var _ driving.TenantResolver = (*tenantResolver)(nil)

type tenantResolver struct {
	signer  driven.ShareTokenSigner
	tenants driven.TenantStore
	// revokeOnRegenerate rejects tokens minted before the last regeneration
	revokeOnRegenerate bool
}

// NewTenantResolver creates a TenantResolver. With revokeOnRegenerate set,
// share tokens are also checked against the stored token version.
func NewTenantResolver(signer driven.ShareTokenSigner, tenants driven.TenantStore, revokeOnRegenerate bool) driving.TenantResolver {
	return &tenantResolver{
		signer:             signer,
		tenants:            tenants,
		revokeOnRegenerate: revokeOnRegenerate,
	}
}

// FromSession resolves the operator's email to its tenant
func (r *tenantResolver) FromSession(auth *domain.AuthContext) (domain.TenantRef, error) {
	if auth == nil {
		return domain.TenantRef{}, domain.ErrUnauthorized
	}
	id, err := domain.NewTenantID(auth.Email)
	if err != nil {
		return domain.TenantRef{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return domain.NewTenantRef(id, auth.Name), nil
}

// FromShareToken verifies the token and resolves the tenant it names
func (r *tenantResolver) FromShareToken(ctx context.Context, token string) (domain.TenantRef, error) {
	if token == "" {
		return domain.TenantRef{}, fmt.Errorf("%w: missing share token", domain.ErrUnauthorized)
	}

	claims, err := r.signer.Verify(token)
	if err != nil {
		return domain.TenantRef{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	id, err := domain.NewTenantID(string(claims.TenantID))
	if err != nil {
		return domain.TenantRef{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	if r.revokeOnRegenerate {
		tenant, err := r.tenants.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TenantRef{}, fmt.Errorf("%w: unknown tenant", domain.ErrUnauthorized)
		}
		if err != nil {
			return domain.TenantRef{}, err
		}
		if claims.Version != tenant.TokenVersion {
			return domain.TenantRef{}, fmt.Errorf("%w: %w: token was regenerated", domain.ErrUnauthorized, domain.ErrTokenInvalid)
		}
	}

	return domain.NewTenantRef(id, claims.Name), nil
}
