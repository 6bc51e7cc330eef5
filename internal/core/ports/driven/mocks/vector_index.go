package mocks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure MockVectorIndex implements VectorIndex
var _ driven.VectorIndex = (*MockVectorIndex)(nil)

// MockVectorIndex is an in-memory cosine index partitioned by namespace.
// Ops records "deleteAll:<ns>" and "upsert:<ns>" in call order.
type MockVectorIndex struct {
	mu         sync.Mutex
	dimensions int
	spaces     map[domain.Namespace]map[string]*domain.EmbeddedChunk
	Ops        []string

	UpsertErr    error
	DeleteAllErr error
	SearchErr    error
}

// NewMockVectorIndex creates an empty index
func NewMockVectorIndex(dimensions int) *MockVectorIndex {
	return &MockVectorIndex{
		dimensions: dimensions,
		spaces:     make(map[domain.Namespace]map[string]*domain.EmbeddedChunk),
	}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, ns domain.Namespace, chunks []*domain.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, "upsert:"+ns.String())
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	space, ok := m.spaces[ns]
	if !ok {
		space = make(map[string]*domain.EmbeddedChunk)
		m.spaces[ns] = space
	}
	for _, c := range chunks {
		if len(c.Vector) != m.dimensions {
			return domain.ErrDimensionMismatch
		}
		space[c.Chunk.ID] = c
	}
	return nil
}

func (m *MockVectorIndex) DeleteAll(ctx context.Context, ns domain.Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, "deleteAll:"+ns.String())
	if m.DeleteAllErr != nil {
		return m.DeleteAllErr
	}
	delete(m.spaces, ns)
	return nil
}

func (m *MockVectorIndex) Search(ctx context.Context, ns domain.Namespace, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	var hits []*domain.ScoredChunk
	for _, c := range m.spaces[ns] {
		hits = append(hits, &domain.ScoredChunk{Chunk: c.Chunk, Score: cosine(vector, c.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Position < hits[j].Chunk.Position
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of vectors in ns
func (m *MockVectorIndex) Count(ns domain.Namespace) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces[ns])
}

// Chunks returns the stored chunks of ns in position order
func (m *MockVectorIndex) Chunks(ns domain.Namespace) []*domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Chunk, 0, len(m.spaces[ns]))
	for _, c := range m.spaces[ns] {
		out = append(out, c.Chunk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *MockVectorIndex) Dimensions() int { return m.dimensions }

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error { return nil }

func (m *MockVectorIndex) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
