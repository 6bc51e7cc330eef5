package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockSessionStore implements SessionStore
var _ driven.SessionStore = (*MockSessionStore)(nil)

// MockSessionStore is a mock implementation of SessionStore for testing
type MockSessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*domain.Session
	byToken    map[string]*domain.Session
	byOperator map[string][]*domain.Session
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions:   make(map[string]*domain.Session),
		byToken:    make(map[string]*domain.Session),
		byOperator: make(map[string][]*domain.Session),
	}
}

func (m *MockSessionStore) Save(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	m.byToken[session.Token] = session
	m.byOperator[session.OperatorID] = append(m.byOperator[session.OperatorID], session)
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.byToken[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.byToken, session.Token)
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionStore) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.byToken[token]
	if !ok {
		return nil
	}
	delete(m.sessions, session.ID)
	delete(m.byToken, token)
	return nil
}

func (m *MockSessionStore) DeleteByOperator(ctx context.Context, operatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.byOperator[operatorID] {
		delete(m.sessions, session.ID)
		delete(m.byToken, session.Token)
	}
	delete(m.byOperator, operatorID)
	return nil
}

// Count returns the number of live sessions
func (m *MockSessionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
