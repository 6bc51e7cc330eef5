package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

func TestParser_EmptyInput(t *testing.T) {
	_, err := NewParser(0).Parse(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestParser_NotAPDF(t *testing.T) {
	inputs := [][]byte{
		[]byte("this is plainly not a pdf"),
		[]byte("%PDF-1.4\n%%EOF"),
		{0x00, 0x01, 0x02, 0x03},
	}

	for _, in := range inputs {
		pages, err := NewParser(0).Parse(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
		assert.Nil(t, pages)
	}
}

func TestHasText(t *testing.T) {
	assert.False(t, HasText(nil))
	assert.False(t, HasText([]domain.Page{{Number: 1}, {Number: 2}}))
	assert.True(t, HasText([]domain.Page{{Number: 1}, {Number: 2, Text: "Menu"}}))
}
