package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FallbackAnswer is returned when retrieval finds nothing for the tenant.
const FallbackAnswer = "I don't know based on the provided documents."

const (
	// DefaultTopK is the number of passages retrieved per question
	DefaultTopK = 6
	// MaxTopK bounds caller supplied topK
	MaxTopK = 20
	// MaxQuestionLength bounds question size in characters
	MaxQuestionLength = 2000
)

// Question is a validated chat question.
type Question struct {
	Text string
	TopK int
}

// NewQuestion validates the question text and clamps topK into [1, MaxTopK].
// A zero or negative topK selects DefaultTopK.
func NewQuestion(text string, topK int) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxQuestionLength {
		return Question{}, fmt.Errorf("%w: question exceeds %d characters", ErrInvalidInput, MaxQuestionLength)
	}
	switch {
	case topK <= 0:
		topK = DefaultTopK
	case topK > MaxTopK:
		topK = MaxTopK
	}
	return Question{Text: text, TopK: topK}, nil
}

// Answer is a grounded answer. Citations are the 1-based positions of the
// passages supplied as context.
type Answer struct {
	Text      string `json:"answer"`
	Citations []int  `json:"citations"`
	// Fallback is set when no passage was retrieved
	Fallback bool `json:"-"`
}

// NewFallbackAnswer is the short-circuit answer for empty retrieval.
func NewFallbackAnswer() *Answer {
	return &Answer{Text: FallbackAnswer, Citations: []int{}, Fallback: true}
}
