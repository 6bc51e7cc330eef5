package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockTenantStore implements TenantStore
var _ driven.TenantStore = (*MockTenantStore)(nil)

// MockTenantStore is an in-memory TenantStore with version-checked link saves
type MockTenantStore struct {
	mu      sync.Mutex
	tenants map[domain.TenantID]domain.Tenant

	// Saves counts successful SaveShareLink calls
	Saves   int
	SaveErr error
}

// NewMockTenantStore creates a new MockTenantStore
func NewMockTenantStore() *MockTenantStore {
	return &MockTenantStore{tenants: make(map[domain.TenantID]domain.Tenant)}
}

func (m *MockTenantStore) Get(ctx context.Context, id domain.TenantID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *MockTenantStore) Ensure(ctx context.Context, ref domain.TenantRef) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[ref.ID]
	if !ok {
		now := time.Now()
		t = domain.Tenant{
			ID:          ref.ID,
			Namespace:   ref.Namespace,
			DisplayName: ref.Name,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	} else if t.DisplayName == "" {
		t.DisplayName = ref.Name
	}
	m.tenants[ref.ID] = t
	return &t, nil
}

func (m *MockTenantStore) SaveShareLink(ctx context.Context, id domain.TenantID, expectedVersion int, link driven.ShareLinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	t, ok := m.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.TokenVersion != expectedVersion {
		return domain.ErrAlreadyExists
	}
	now := time.Now()
	t.ShareToken = link.Token
	t.ShareLink = link.URL
	t.TokenVersion = link.Version
	t.ShareIssued = &now
	t.UpdatedAt = now
	m.tenants[id] = t
	m.Saves++
	return nil
}
