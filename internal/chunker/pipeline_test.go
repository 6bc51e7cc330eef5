package chunker

import (
	"testing"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.processors) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.processors))
	}
}

func TestPipeline_OrderedProcessors(t *testing.T) {
	p := NewPipeline()

	// Added out of order - sorted by Order() on first Process
	p.Add(NewMinLengthFilter(20))                       // Order 20
	p.Add(NewDeduplicator(DefaultDeduplicatorConfig())) // Order 10

	_ = p.Process(nil)

	names := p.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 processors, got %d", len(names))
	}
	if names[0] != "deduplicator" || names[1] != "min-length" {
		t.Errorf("unexpected order: %v", names)
	}
}

func TestDeduplicator_Process(t *testing.T) {
	d := NewDeduplicator(DeduplicatorConfig{MinDuplicateLength: 10})

	chunks := []*domain.Chunk{
		{Content: "The ballroom has a sprung dance floor."},
		{Content: "short"},
		{Content: "THE BALLROOM HAS A SPRUNG DANCE FLOOR.  "},
		{Content: "short"},
		{Content: "Catering is provided in house."},
	}

	result := d.Process(chunks)

	if len(result) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(result))
	}
	if result[0] != chunks[0] {
		t.Error("expected first occurrence to be kept")
	}
}

func TestDeduplicator_SingleChunk(t *testing.T) {
	d := NewDeduplicator(DefaultDeduplicatorConfig())
	chunks := []*domain.Chunk{{Content: "only"}}

	if got := d.Process(chunks); len(got) != 1 {
		t.Errorf("expected chunk to pass through, got %d", len(got))
	}
}

func TestMinLengthFilter_Process(t *testing.T) {
	f := NewMinLengthFilter(20)

	chunks := []*domain.Chunk{
		{Content: "7"},
		{Content: "                    x                    "},
		{Content: "exactly twenty chars"},
		{Content: "Ceremonies may be held in the garden."},
	}

	result := f.Process(chunks)

	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(result))
	}
	if result[0].Content != "exactly twenty chars" {
		t.Errorf("unexpected first chunk %q", result[0].Content)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a line\r\nnext line", "a line\nnext line"},
		{"lone cr", "a\rb", "a\nb"},
		{"repeated spaces", "Capacity:    200   guests", "Capacity: 200 guests"},
		{"tabs and nbsp", "Capacity:\t200\u00a0guests", "Capacity: 200 guests"},
		{"hyphenated break", "the capa-\ncity of the hall", "the capacity of the hall"},
		{"keeps real hyphen", "Wi-Fi is free", "Wi-Fi is free"},
		{"soft hyphen", "recep\u00adtion", "reception"},
		{"control chars", "menu\x00\x07 card", "menu card"},
		{"blank lines collapsed", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"whitespace lines", "one\n   \n  \ntwo", "one\n\ntwo"},
		{"trimmed", "  \n hello \n  ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
