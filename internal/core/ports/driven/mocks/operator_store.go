package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockOperatorStore implements OperatorStore
var _ driven.OperatorStore = (*MockOperatorStore)(nil)

// MockOperatorStore is an in-memory OperatorStore
type MockOperatorStore struct {
	mu        sync.RWMutex
	operators map[string]*domain.Operator
	byEmail   map[string]*domain.Operator
}

// NewMockOperatorStore creates a new MockOperatorStore
func NewMockOperatorStore() *MockOperatorStore {
	return &MockOperatorStore{
		operators: make(map[string]*domain.Operator),
		byEmail:   make(map[string]*domain.Operator),
	}
}

func (m *MockOperatorStore) Save(ctx context.Context, op *domain.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byEmail[op.Email]; ok && existing.ID != op.ID {
		return domain.ErrAlreadyExists
	}
	m.operators[op.ID] = op
	m.byEmail[op.Email] = op
	return nil
}

func (m *MockOperatorStore) Get(ctx context.Context, id string) (*domain.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operators[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return op, nil
}

func (m *MockOperatorStore) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return op, nil
}

func (m *MockOperatorStore) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	op.LastLoginAt = &now
	return nil
}
