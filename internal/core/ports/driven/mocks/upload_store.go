package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockUploadStore implements UploadStore
var _ driven.UploadStore = (*MockUploadStore)(nil)

// MockUploadStore keeps one upload per tenant with the same conditional
// transitions as the PostgreSQL store.
type MockUploadStore struct {
	mu      sync.Mutex
	uploads map[domain.TenantID]domain.Upload

	GetErr error
}

// NewMockUploadStore creates a new MockUploadStore
func NewMockUploadStore() *MockUploadStore {
	return &MockUploadStore{uploads: make(map[domain.TenantID]domain.Upload)}
}

func (m *MockUploadStore) Get(ctx context.Context, tenantID domain.TenantID) (*domain.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	u, ok := m.uploads[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MockUploadStore) StartProcessing(ctx context.Context, upload *domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *upload
	u.Status = domain.UploadStatusProcessing
	u.Pages, u.Chunks, u.Error = 0, 0, ""
	if u.StartedAt.IsZero() {
		u.StartedAt = time.Now()
	}
	u.UpdatedAt = u.StartedAt
	m.uploads[u.TenantID] = u
	return nil
}

func (m *MockUploadStore) ListStuck(ctx context.Context, startedBefore time.Time, limit int) ([]*domain.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Upload
	for _, u := range m.uploads {
		if u.Status == domain.UploadStatusProcessing && u.StartedAt.Before(startedBefore) {
			stuck := u
			out = append(out, &stuck)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockUploadStore) MarkReady(ctx context.Context, tenantID domain.TenantID, uploadID string, result domain.IngestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[tenantID]
	if !ok || u.UploadID != uploadID || u.Status != domain.UploadStatusProcessing {
		return domain.ErrSuperseded
	}
	u.Status = domain.UploadStatusReady
	u.Pages, u.Chunks, u.Error = result.Pages, result.Chunks, ""
	u.UpdatedAt = time.Now()
	m.uploads[tenantID] = u
	return nil
}

func (m *MockUploadStore) MarkError(ctx context.Context, tenantID domain.TenantID, uploadID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[tenantID]
	if !ok || u.UploadID != uploadID || u.Status != domain.UploadStatusProcessing {
		return domain.ErrSuperseded
	}
	u.Status = domain.UploadStatusError
	u.Error = reason
	u.UpdatedAt = time.Now()
	m.uploads[tenantID] = u
	return nil
}

// Put stores an upload as-is (for test setup)
func (m *MockUploadStore) Put(u domain.Upload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[u.TenantID] = u
}
