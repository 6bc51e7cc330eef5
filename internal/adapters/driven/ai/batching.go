package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure BatchingEmbedder implements EmbeddingService
var _ driven.EmbeddingService = (*BatchingEmbedder)(nil)

// BatchConfig controls request sizing and retries
type BatchConfig struct {
	// BatchSize is the maximum number of texts per provider request
	BatchSize int
	// MaxAttempts bounds tries per batch, including the first
	MaxAttempts int
	// Backoff is multiplied by the attempt number between tries
	Backoff time.Duration
}

// DefaultBatchConfig returns the provider-facing defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:   16,
		MaxAttempts: 3,
		Backoff:     400 * time.Millisecond,
	}
}

// RetryHook is called before each retry with the failed attempt number
type RetryHook func(attempt int, err error)

// BatchingEmbedder splits large inputs into fixed-size batches, retries
// transient failures, and rejects vectors of the wrong size.
type BatchingEmbedder struct {
	inner   driven.EmbeddingService
	config  BatchConfig
	onRetry RetryHook
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewBatchingEmbedder wraps inner with batching and retries
func NewBatchingEmbedder(inner driven.EmbeddingService, config BatchConfig) *BatchingEmbedder {
	def := DefaultBatchConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Backoff < 0 {
		config.Backoff = 0
	}
	return &BatchingEmbedder{
		inner:  inner,
		config: config,
		sleep:  sleepContext,
	}
}

// OnRetry registers a hook used for logging and metrics
func (b *BatchingEmbedder) OnRetry(hook RetryHook) *BatchingEmbedder {
	b.onRetry = hook
	return b
}

// Embed returns one vector per text, in input order
func (b *BatchingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.config.BatchSize {
		end := min(start+b.config.BatchSize, len(texts))
		batch := texts[start:end]

		var vecs [][]float32
		err := b.withRetry(ctx, func() error {
			var err error
			vecs, err = b.inner.Embed(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrUpstreamProvider, len(vecs), len(batch))
		}
		for i, v := range vecs {
			if err := b.checkDimensions(v); err != nil {
				return nil, fmt.Errorf("text %d: %w", start+i, err)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single question with the same retry policy
func (b *BatchingEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	var vec []float32
	err := b.withRetry(ctx, func() error {
		var err error
		vec, err = b.inner.EmbedQuery(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := b.checkDimensions(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (b *BatchingEmbedder) withRetry(ctx context.Context, call func() error) error {
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= b.config.MaxAttempts {
			return fmt.Errorf("%w: %w", domain.ErrUpstreamProvider, err)
		}
		if b.onRetry != nil {
			b.onRetry(attempt, err)
		}
		if serr := b.sleep(ctx, b.config.Backoff*time.Duration(attempt)); serr != nil {
			return fmt.Errorf("%w: %w", domain.ErrUpstreamProvider, serr)
		}
	}
}

func (b *BatchingEmbedder) checkDimensions(v []float32) error {
	want := b.inner.Dimensions()
	if want > 0 && len(v) != want {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, want, len(v))
	}
	return nil
}

// Dimensions returns the wrapped service's vector size
func (b *BatchingEmbedder) Dimensions() int {
	return b.inner.Dimensions()
}

// Model returns the wrapped service's model
func (b *BatchingEmbedder) Model() string {
	return b.inner.Model()
}

// HealthCheck delegates to the wrapped service
func (b *BatchingEmbedder) HealthCheck(ctx context.Context) error {
	return b.inner.HealthCheck(ctx)
}

// Close closes the wrapped service
func (b *BatchingEmbedder) Close() error {
	return b.inner.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
