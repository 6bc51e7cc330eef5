package driven

import (
	"context"
)

// LLMService provides grounded text generation
type LLMService interface {
	// Generate runs one system + user turn and returns the model's text.
	// Implementations do not retry.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}

// GenerateRequest is a single-turn generation request
type GenerateRequest struct {
	System      string
	User        string
	Temperature float64
}
