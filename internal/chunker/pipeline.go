package chunker

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// PostProcessor transforms the chunk list after splitting.
type PostProcessor interface {
	Process(chunks []*domain.Chunk) []*domain.Chunk
	Name() string
	// Order sorts processors, lowest first
	Order() int
}

// Pipeline chains post-processors in Order().
type Pipeline struct {
	mu         sync.RWMutex
	processors []PostProcessor
	sorted     bool
}

// NewPipeline creates an empty post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
func (p *Pipeline) Process(chunks []*domain.Chunk) []*domain.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}
	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DeduplicatorConfig configures the deduplicator.
type DeduplicatorConfig struct {
	// MinDuplicateLength is the minimum chunk length to check for duplicates
	MinDuplicateLength int
}

// DefaultDeduplicatorConfig returns sensible defaults.
func DefaultDeduplicatorConfig() DeduplicatorConfig {
	return DeduplicatorConfig{
		MinDuplicateLength: 50,
	}
}

// Deduplicator removes repeated chunks, such as a footer printed on every page.
// The first occurrence is kept.
type Deduplicator struct {
	config DeduplicatorConfig
}

// NewDeduplicator creates a new deduplicator with the given config.
func NewDeduplicator(config DeduplicatorConfig) *Deduplicator {
	return &Deduplicator{config: config}
}

// Process removes duplicate chunks.
func (d *Deduplicator) Process(chunks []*domain.Chunk) []*domain.Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	seen := make(map[string]bool)
	result := make([]*domain.Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		if len(chunk.Content) < d.config.MinDuplicateLength {
			result = append(result, chunk)
			continue
		}

		normalized := strings.TrimSpace(strings.ToLower(chunk.Content))
		if !seen[normalized] {
			seen[normalized] = true
			result = append(result, chunk)
		}
	}

	return result
}

// Name returns the processor name.
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order returns 10.
func (d *Deduplicator) Order() int {
	return 10
}

// MinLengthFilter drops chunks with too little text to carry signal
// (page numbers, headers, stray whitespace).
type MinLengthFilter struct {
	min int
}

// NewMinLengthFilter creates a filter for chunks shorter than min characters.
func NewMinLengthFilter(min int) *MinLengthFilter {
	return &MinLengthFilter{min: min}
}

// Process drops short chunks.
func (f *MinLengthFilter) Process(chunks []*domain.Chunk) []*domain.Chunk {
	result := make([]*domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(chunk.Content)) >= f.min {
			result = append(result, chunk)
		}
	}
	return result
}

// Name returns the processor name.
func (f *MinLengthFilter) Name() string {
	return "min-length"
}

// Order returns 20 - runs last.
func (f *MinLengthFilter) Order() int {
	return 20
}
