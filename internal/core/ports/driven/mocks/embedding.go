package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockEmbeddingService implements EmbeddingService
var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService embeds text as a normalised bag of hashed words, so
// texts sharing words land close together.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failNext   bool

	// Err, when set, is returned by every call
	Err error
	// EmbedCalls counts Embed calls; QueryCalls counts EmbedQuery calls
	EmbedCalls int
	QueryCalls int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 64,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedCalls++
	if err := m.fail(); err != nil {
		return nil, err
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vector(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.vector(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.Err
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) fail() error {
	if m.Err != nil {
		return m.Err
	}
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(m.dimensions)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// Helper methods for testing

func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

func (m *MockEmbeddingService) SetDimensions(dims int) {
	m.dimensions = dims
}
