package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TenantStore = (*TenantStore)(nil)

const tenantColumns = `id, namespace, display_name, share_token, share_link, token_version,
	share_issued_at, created_at, updated_at`

// TenantStore implements driven.TenantStore using PostgreSQL.
// The stored share token is sealed when a Sealer is configured.
type TenantStore struct {
	db     *DB
	sealer *Sealer
}

// NewTenantStore creates a new TenantStore. sealer may be nil.
func NewTenantStore(db *DB, sealer *Sealer) *TenantStore {
	return &TenantStore{db: db, sealer: sealer}
}

// Get returns the tenant or domain.ErrNotFound
func (s *TenantStore) Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return s.scan(s.db.QueryRowContext(ctx, query, id.String()))
}

// Ensure inserts the tenant row if missing and returns the stored record.
// The display name is only filled in, never overwritten.
func (s *TenantStore) Ensure(ctx context.Context, ref domain.TenantRef) (*domain.Tenant, error) {
	var tenant *domain.Tenant
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		insert := `
			INSERT INTO tenants (id, namespace, display_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (id) DO UPDATE SET
				display_name = CASE WHEN tenants.display_name = '' THEN EXCLUDED.display_name
					ELSE tenants.display_name END
		`
		if _, err := tx.ExecContext(ctx, insert, ref.ID.String(), ref.Namespace.String(), ref.Name, now); err != nil {
			return fmt.Errorf("insert tenant: %w", err)
		}

		var err error
		query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
		tenant, err = s.scan(tx.QueryRowContext(ctx, query, ref.ID.String()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// SaveShareLink stores the link when the row still carries expectedVersion.
func (s *TenantStore) SaveShareLink(ctx context.Context, id domain.TenantID, expectedVersion int, link driven.ShareLinkRecord) error {
	token, err := s.sealer.Seal([]byte(link.Token))
	if err != nil {
		return fmt.Errorf("seal share token: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE tenants
		SET share_token = $1, share_link = $2, token_version = $3, share_issued_at = $4, updated_at = $4
		WHERE id = $5 AND token_version = $6
	`
	result, err := s.db.ExecContext(ctx, query, token, link.URL, link.Version, now, id.String(), expectedVersion)
	if err != nil {
		return fmt.Errorf("update share link: %w", err)
	}
	return affected(result, fmt.Errorf("%w: share link version changed", domain.ErrAlreadyExists))
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *TenantStore) scan(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	var token []byte
	var issued sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.Namespace,
		&t.DisplayName,
		&token,
		&t.ShareLink,
		&t.TokenVersion,
		&issued,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(token) > 0 {
		plain, err := s.sealer.Open(token)
		if err != nil {
			return nil, fmt.Errorf("open share token: %w", err)
		}
		t.ShareToken = string(plain)
	}
	t.ShareIssued = TimePtr(issued)
	return &t, nil
}
