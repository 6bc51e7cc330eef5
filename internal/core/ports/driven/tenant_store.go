package driven

import (
	"context"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// TenantStore persists tenant records and their cached share link (PostgreSQL)
type TenantStore interface {
	// Get returns the tenant or domain.ErrNotFound
	Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error)

	// Ensure creates the tenant row if missing and returns the stored record
	Ensure(ctx context.Context, ref domain.TenantRef) (*domain.Tenant, error)

	// SaveShareLink stores token and link. When the stored version differs from
	// expectedVersion nothing is written and domain.ErrAlreadyExists is returned,
	// so two concurrent first issuances cannot both win.
	SaveShareLink(ctx context.Context, id domain.TenantID, expectedVersion int, link ShareLinkRecord) error
}

// ShareLinkRecord is the persisted share link
type ShareLinkRecord struct {
	Token   string
	URL     string
	Version int
}
