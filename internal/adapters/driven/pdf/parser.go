// Package pdf extracts per-page plain text from PDF uploads.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure Parser implements DocumentParser
var _ driven.DocumentParser = (*Parser)(nil)

// Parser reads text layers with ledongthuc/pdf. Scanned pages without a
// text layer come back empty.
type Parser struct {
	// MaxPages bounds work on hostile input; 0 means unlimited
	MaxPages int
}

// NewParser creates a parser with the given page limit
func NewParser(maxPages int) *Parser {
	return &Parser{MaxPages: maxPages}
}

// Parse returns one Page per PDF page, in order
func (p *Parser) Parse(ctx context.Context, data []byte) (pages []domain.Page, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrUnreadableDocument)
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}

	count := reader.NumPage()
	if p.MaxPages > 0 && count > p.MaxPages {
		return nil, fmt.Errorf("%w: %d pages exceeds limit of %d", domain.ErrUnreadableDocument, count, p.MaxPages)
	}

	pages = make([]domain.Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			// Pages whose content stream cannot be decoded stay empty.
			if t, perr := page.GetPlainText(nil); perr == nil {
				text = strings.TrimSpace(t)
			}
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}

// HasText reports whether any page produced text
func HasText(pages []domain.Page) bool {
	for _, p := range pages {
		if p.Text != "" {
			return true
		}
	}
	return false
}
