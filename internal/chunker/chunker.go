package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// Config configures the chunker. Sizes are in characters (runes).
type Config struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the minimum shared text between neighbouring chunks of a page
	Overlap int

	// MinLength drops chunks whose trimmed content is shorter
	MinLength int
}

// DefaultConfig returns the ingestion defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 800,
		Overlap:   120,
		MinLength: 20,
	}
}

// sentenceEnders in preference-neutral order; the latest match wins.
var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Chunker splits page text on paragraph, then sentence, then line, then word
// boundaries and runs the post-processor pipeline over the result.
type Chunker struct {
	config   Config
	pipeline *Pipeline
}

// New creates a chunker with the default post-processors.
// Overlap is clamped below half the chunk size.
func New(config Config) *Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}
	if config.Overlap >= config.ChunkSize/2 {
		config.Overlap = config.ChunkSize/2 - 1
	}

	p := NewPipeline()
	p.Add(NewDeduplicator(DefaultDeduplicatorConfig()))
	p.Add(NewMinLengthFilter(config.MinLength))

	return &Chunker{config: config, pipeline: p}
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Split splits each page independently so every chunk keeps its page number.
func (c *Chunker) Split(pages []domain.Page) []*domain.Chunk {
	var chunks []*domain.Chunk
	for _, page := range pages {
		for _, piece := range c.splitText(NormalizeText(page.Text)) {
			chunks = append(chunks, &domain.Chunk{
				Page:    page.Number,
				Content: piece,
			})
		}
	}

	chunks = c.pipeline.Process(chunks)
	for i, chunk := range chunks {
		chunk.Position = i
	}
	return chunks
}

// splitText cuts normalised text into windows of at most ChunkSize runes.
// Each window after the first starts at least Overlap runes before the
// previous one ended, moved back to a word start when one is close.
func (c *Chunker) splitText(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)
	if n <= c.config.ChunkSize {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < n {
		end := start + c.config.ChunkSize
		if end >= n {
			pieces = append(pieces, string(runes[start:n]))
			break
		}

		end = c.findBreakPoint(runes, start, end)
		cut := end
		for cut > start && unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		pieces = append(pieces, string(runes[start:cut]))

		start = c.overlapStart(runes, start, cut)
	}
	return pieces
}

// findBreakPoint finds the best boundary in the tail of the window.
// Break points never fall inside the first Overlap runes so the next window
// always advances.
func (c *Chunker) findBreakPoint(runes []rune, start, maxEnd int) int {
	// +3 leaves room for trailing whitespace trimmed after the break
	searchStart := start + c.config.Overlap + 3
	if half := maxEnd - c.config.ChunkSize/2; half > searchStart {
		searchStart = half
	}
	if searchStart >= maxEnd {
		return maxEnd
	}

	window := string(runes[searchStart:maxEnd])

	// Paragraph boundary (double newline)
	if idx := lastRuneIndex(window, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}

	// Sentence boundary
	best := -1
	for _, ender := range sentenceEnders {
		if idx := lastRuneIndex(window, ender); idx != -1 {
			if endPos := idx + len(ender); endPos > best {
				best = endPos
			}
		}
	}
	if best > 0 {
		return searchStart + best
	}

	// Line boundary
	if idx := lastRuneIndex(window, "\n"); idx != -1 {
		return searchStart + idx + 1
	}

	// Word boundary
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx != -1 {
		return searchStart + utf8.RuneCountInString(window[:idx]) + 1
	}

	return maxEnd
}

// overlapStart returns where the next window begins: Overlap runes before
// cut, moved back to the nearest word start within half the overlap.
func (c *Chunker) overlapStart(runes []rune, start, cut int) int {
	next := cut - c.config.Overlap
	if next <= start {
		return start + 1
	}
	limit := next - c.config.Overlap/2
	for i := next; i > start && i >= limit; i-- {
		if unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return next
}

// lastRuneIndex is strings.LastIndex measured in runes.
func lastRuneIndex(s, substr string) int {
	idx := strings.LastIndex(s, substr)
	if idx == -1 {
		return -1
	}
	return utf8.RuneCountInString(s[:idx])
}
