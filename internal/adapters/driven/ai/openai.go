package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure the OpenAI-compatible adapters implement their ports
var (
	_ driven.EmbeddingService = (*OpenAIEmbedding)(nil)
	_ driven.LLMService       = (*OpenAILLM)(nil)
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"

	// Ollama ignores the bearer token but the client refuses an empty one.
	placeholderToken = "ollama"
)

// Known output sizes for OpenAI-compatible embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// OpenAIEmbedding implements EmbeddingService for OpenAI and Ollama
type OpenAIEmbedding struct {
	embedder   *embeddings.EmbedderImpl
	model      string
	dimensions int
}

// NewOpenAIEmbedding creates an embedding service against an OpenAI-compatible endpoint.
// An empty apiKey is allowed for self-hosted servers.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if apiKey == "" {
		apiKey = placeholderToken
	}
	if dimensions <= 0 {
		d, ok := openAIModelDimensions[modelBase(model)]
		if !ok {
			return nil, fmt.Errorf("unknown embedding model %q: dimensions must be configured", model)
		}
		dimensions = d
	}

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedding{
		embedder:   embedder,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// NewOllamaEmbedding creates an embedding service against a local Ollama server
func NewOllamaEmbedding(baseURL, model string, dimensions int) (*OpenAIEmbedding, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return NewOpenAIEmbedding("", model, baseURL, dimensions)
}

// Embed generates embeddings for multiple texts
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embedder.EmbedDocuments(ctx, texts)
}

// EmbedQuery generates an embedding for a question
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, query)
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close is a no-op; the underlying client holds no long-lived resources
func (e *OpenAIEmbedding) Close() error {
	return nil
}

// OpenAILLM implements LLMService for OpenAI and Ollama chat models
type OpenAILLM struct {
	llm   *openai.LLM
	model string
}

// NewOpenAILLM creates a chat service against an OpenAI-compatible endpoint
func NewOpenAILLM(apiKey, model, baseURL string) (*OpenAILLM, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if apiKey == "" {
		apiKey = placeholderToken
	}

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAILLM{llm: llm, model: model}, nil
}

// NewOllamaLLM creates a chat service against a local Ollama server
func NewOllamaLLM(baseURL, model string) (*OpenAILLM, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = "llama3.1"
	}
	return NewOpenAILLM("", model, baseURL)
}

// Generate runs a single system + user turn
func (l *OpenAILLM) Generate(ctx context.Context, req driven.GenerateRequest) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	resp, err := l.llm.GenerateContent(ctx, messages, llms.WithTemperature(req.Temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// Model returns the model name being used
func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping verifies the chat endpoint answers
func (l *OpenAILLM) Ping(ctx context.Context) error {
	_, err := l.Generate(ctx, driven.GenerateRequest{User: "ping"})
	return err
}

// Close is a no-op
func (l *OpenAILLM) Close() error {
	return nil
}

// modelBase strips an Ollama tag such as ":latest".
func modelBase(model string) string {
	if i := strings.IndexByte(model, ':'); i > 0 {
		return model[:i]
	}
	return model
}
