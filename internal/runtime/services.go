package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// diagnosticsProbe is the text embedded by EmbeddingDiagnostics
const diagnosticsProbe = "ping"

// Services holds references to the configured AI services.
// The embedding service and LLM can be swapped while requests are in flight.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil)
	embeddingProvider domain.AIProvider
	embeddingService  driven.EmbeddingService
	llmService        driven.LLMService
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// EmbeddingProvider returns the provider behind the current embedding service
func (s *Services) EmbeddingProvider() domain.AIProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingProvider
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(provider domain.AIProvider, svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.embeddingProvider = provider
	if svc == nil {
		s.embeddingProvider = ""
	}
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService updates the LLM service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
		s.embeddingProvider = ""
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)

	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, provider domain.AIProvider, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService("", nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(provider, svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// EmbeddingDiagnostics embeds a probe text and reports what the provider
// actually returned.
func (s *Services) EmbeddingDiagnostics(ctx context.Context) (*domain.EmbeddingDiagnostics, error) {
	s.mu.RLock()
	svc, provider := s.embeddingService, s.embeddingProvider
	s.mu.RUnlock()

	if svc == nil {
		return nil, fmt.Errorf("%w: embedding provider not configured", domain.ErrServiceUnavailable)
	}

	vector, err := svc.EmbedQuery(ctx, diagnosticsProbe)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding probe: %w", domain.ErrUpstreamProvider, err)
	}

	return &domain.EmbeddingDiagnostics{
		Provider:   provider,
		Model:      svc.Model(),
		Dimensions: len(vector),
	}, nil
}
