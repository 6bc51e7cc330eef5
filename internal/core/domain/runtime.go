package domain

import "sync"

// RuntimeConfig tracks which capabilities are available at runtime.
// Backends are fixed at startup; AI capability flags follow the configured providers.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	VectorBackend  string // "qdrant", "chromem" or "vespa"

	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, vectorBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		VectorBackend:  vectorBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanIngest returns true if uploads can be embedded and indexed
func (c *RuntimeConfig) CanIngest() bool {
	return c.EmbeddingAvailable()
}

// CanAnswer returns true if questions can be answered
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.LLMAvailable()
}

// Capabilities is the public view of RuntimeConfig
type Capabilities struct {
	SessionBackend string `json:"session_backend"`
	VectorBackend  string `json:"vector_backend"`
	Embedding      bool   `json:"embedding"`
	LLM            bool   `json:"llm"`
}

// Snapshot returns the current capabilities
func (c *RuntimeConfig) Snapshot() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Capabilities{
		SessionBackend: c.SessionBackend,
		VectorBackend:  c.VectorBackend,
		Embedding:      c.embeddingAvailable,
		LLM:            c.llmAvailable,
	}
}
