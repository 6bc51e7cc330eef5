package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

// Ensure answerService implements AnswerService
var _ driving.AnswerService = (*answerService)(nil)

// DefaultTemperature is the sampling temperature for grounded answers
const DefaultTemperature = 0.3

// SystemPrompt constrains the model to the supplied passages
const SystemPrompt = `You are VenueBot, an assistant for a venue's brochure.
Answer using ONLY the provided CONTEXT.
Be concise and helpful.
If the answer is not in the CONTEXT, say you don't know.`

// AnswerServiceConfig holds dependencies for the answer service
type AnswerServiceConfig struct {
	Index       driven.VectorIndex
	Services    *runtime.Services
	Temperature float64
	Logger      *zap.Logger
}

type answerService struct {
	index       driven.VectorIndex
	services    *runtime.Services
	temperature float64
	logger      *zap.Logger
}

// NewAnswerService creates a new AnswerService
func NewAnswerService(cfg AnswerServiceConfig) driving.AnswerService {
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &answerService{
		index:       cfg.Index,
		services:    cfg.Services,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Answer embeds the question, retrieves passages from ns only and asks the
// language model. No passages means the fallback answer and no model call.
func (s *answerService) Answer(ctx context.Context, ns domain.Namespace, q domain.Question) (*domain.Answer, error) {
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: invalid namespace", domain.ErrInvalidInput)
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider not configured", domain.ErrServiceUnavailable)
	}

	vector, err := embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrRetrievalFailed, err)
	}

	hits, err := s.index.Search(ctx, ns, vector, q.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrRetrievalFailed, err)
	}
	if len(hits) == 0 {
		return domain.NewFallbackAnswer(), nil
	}

	llm := s.services.LLMService()
	if llm == nil {
		return nil, fmt.Errorf("%w: language model not configured", domain.ErrServiceUnavailable)
	}

	text, err := llm.Generate(ctx, driven.GenerateRequest{
		System:      SystemPrompt,
		User:        BuildUserPrompt(hits, q.Text),
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %w", domain.ErrUpstreamProvider, err)
	}

	citations := make([]int, len(hits))
	for i := range hits {
		citations[i] = i + 1
	}

	s.logger.Debug("answered",
		zap.String("namespace", ns.String()),
		zap.Int("passages", len(hits)))

	return &domain.Answer{Text: strings.TrimSpace(text), Citations: citations}, nil
}

// BuildContext renders passages as "[[i]] (page p) content" blocks separated
// by a blank line. The page tag is omitted when unknown.
func BuildContext(hits []*domain.ScoredChunk) string {
	blocks := make([]string, len(hits))
	for i, hit := range hits {
		var b strings.Builder
		fmt.Fprintf(&b, "[[%d]] ", i+1)
		if hit.Chunk.Page > 0 {
			fmt.Fprintf(&b, "(page %d) ", hit.Chunk.Page)
		}
		b.WriteString(hit.Chunk.Content)
		blocks[i] = b.String()
	}
	return strings.Join(blocks, "\n\n")
}

// BuildUserPrompt renders the user turn for a question
func BuildUserPrompt(hits []*domain.ScoredChunk, question string) string {
	return "CONTEXT:\n" + BuildContext(hits) + "\n\nQUESTION:\n" + question
}
