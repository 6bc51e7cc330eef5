package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockLLMService implements LLMService
var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService records requests and answers with Response or GenerateFn.
type MockLLMService struct {
	mu       sync.Mutex
	Requests []driven.GenerateRequest

	Response   string
	Err        error
	GenerateFn func(req driven.GenerateRequest) (string, error)
}

// NewMockLLMService creates a mock that answers with response
func NewMockLLMService(response string) *MockLLMService {
	return &MockLLMService{Response: response}
}

func (m *MockLLMService) Generate(ctx context.Context, req driven.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls returns how many Generate calls were made
func (m *MockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request
func (m *MockLLMService) LastRequest() driven.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return driven.GenerateRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

func (m *MockLLMService) Model() string { return "mock-llm" }

func (m *MockLLMService) Ping(ctx context.Context) error { return m.Err }

func (m *MockLLMService) Close() error { return nil }
