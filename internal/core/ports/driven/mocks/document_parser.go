package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockDocumentParser implements DocumentParser
var _ driven.DocumentParser = (*MockDocumentParser)(nil)

// MockDocumentParser returns fixed pages, or calls ParseFn when set
type MockDocumentParser struct {
	mu    sync.Mutex
	Pages []domain.Page
	Err   error
	Calls int

	ParseFn func(data []byte) ([]domain.Page, error)
}

// NewMockDocumentParser returns a parser yielding pages
func NewMockDocumentParser(pages ...domain.Page) *MockDocumentParser {
	return &MockDocumentParser{Pages: pages}
}

func (m *MockDocumentParser) Parse(ctx context.Context, data []byte) ([]domain.Page, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.ParseFn != nil {
		return m.ParseFn(data)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Pages, nil
}
