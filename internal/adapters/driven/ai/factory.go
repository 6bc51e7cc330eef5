package ai

import (
	"fmt"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct {
	batch   BatchConfig
	onRetry RetryHook
}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{batch: DefaultBatchConfig()}
}

// WithBatchConfig overrides batching and retry settings for embedders
func (f *Factory) WithBatchConfig(cfg BatchConfig, onRetry RetryHook) *Factory {
	f.batch = cfg
	f.onRetry = onRetry
	return f
}

// CreateEmbeddingService creates a batching embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		inner driven.EmbeddingService
		err   error
	)
	switch settings.Provider {
	case domain.AIProviderGemini:
		inner, err = NewGeminiEmbedding(settings.APIKey, settings.Model, settings.BaseURL, settings.Dimensions)
	case domain.AIProviderOpenAI:
		inner, err = NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, settings.Dimensions)
	case domain.AIProviderOllama:
		inner, err = NewOllamaEmbedding(settings.BaseURL, settings.Model, settings.Dimensions)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewBatchingEmbedder(inner, f.batch).OnRetry(f.onRetry), nil
}

// CreateLLMService creates an LLM service from settings
func (f *Factory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		llm driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderGemini:
		llm, err = NewGeminiLLM(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOpenAI:
		llm, err = NewOpenAILLM(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOllama:
		llm, err = NewOllamaLLM(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm, nil
}
