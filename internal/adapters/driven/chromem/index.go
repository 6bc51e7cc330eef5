// Package chromem is an embedded vector index with one chromem-go collection
// per namespace. It backs single-node deployments and tests.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

var tracer = otel.Tracer("brochurebot.vectorindex.chromem")

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Metadata keys
const (
	metaUploadID = "upload_id"
	metaSource   = "source"
	metaPage     = "page"
	metaPosition = "position"
)

// errNoEmbedder is returned if chromem ever tries to embed text itself.
// Every document and query is stored with a precomputed vector.
var errNoEmbedder = errors.New("chromem index does not embed text")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Config holds chromem settings
type Config struct {
	// Path enables on-disk persistence; empty means in-memory
	Path       string
	Compress   bool
	Dimensions int
}

// Index implements driven.VectorIndex on chromem-go
type Index struct {
	db         *chromem.DB
	dimensions int
	logger     *zap.Logger
}

// NewIndex opens (or creates) the database
func NewIndex(cfg Config, logger *zap.Logger) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("chromem index requires a positive vector size")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	logger.Info("chromem index initialized",
		zap.String("path", cfg.Path),
		zap.Int("vector_size", cfg.Dimensions),
	)
	return &Index{db: db, dimensions: cfg.Dimensions, logger: logger}, nil
}

// Upsert adds documents to the namespace collection; repeated IDs replace
func (s *Index) Upsert(ctx context.Context, ns domain.Namespace, chunks []*domain.EmbeddedChunk) error {
	ctx, span := tracer.Start(ctx, "chromem.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("chunks", len(chunks)))

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ec := range chunks {
		if len(ec.Vector) != s.dimensions {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimensions, len(ec.Vector))
		}
		// chromem normalises in place; keep the caller's slice intact
		vec := make([]float32, len(ec.Vector))
		copy(vec, ec.Vector)
		docs[i] = chromem.Document{
			ID:        ec.Chunk.ID,
			Content:   ec.Chunk.Content,
			Embedding: vec,
			Metadata: map[string]string{
				metaUploadID: ec.Chunk.UploadID,
				metaSource:   ec.Chunk.Source,
				metaPage:     strconv.Itoa(ec.Chunk.Page),
				metaPosition: strconv.Itoa(ec.Chunk.Position),
			},
		}
	}

	collection, err := s.db.GetOrCreateCollection(ns.String(), nil, noEmbedding)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting collection %s: %w", ns, err)
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", ns, err)
	}
	return nil
}

// Search returns up to k nearest documents from the namespace collection
func (s *Index) Search(ctx context.Context, ns domain.Namespace, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "chromem.Search")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("k", k))

	if !ns.Valid() {
		return nil, fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimensions, len(vector))
	}

	collection := s.db.GetCollection(ns.String(), noEmbedding)
	if collection == nil || k <= 0 {
		return []*domain.ScoredChunk{}, nil
	}

	// chromem requires nResults <= document count
	count := collection.Count()
	if count == 0 {
		return []*domain.ScoredChunk{}, nil
	}
	if k > count {
		k = count
	}

	query := make([]float32, len(vector))
	copy(query, vector)

	results, err := collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", ns, err)
	}

	out := make([]*domain.ScoredChunk, len(results))
	for i, r := range results {
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		pos, _ := strconv.Atoi(r.Metadata[metaPosition])
		out[i] = &domain.ScoredChunk{
			Chunk: &domain.Chunk{
				ID:        r.ID,
				Namespace: ns,
				UploadID:  r.Metadata[metaUploadID],
				Source:    r.Metadata[metaSource],
				Page:      page,
				Position:  pos,
				Content:   r.Content,
			},
			Score: float64(r.Similarity),
		}
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// DeleteAll drops the namespace collection
func (s *Index) DeleteAll(ctx context.Context, ns domain.Namespace) error {
	_, span := tracer.Start(ctx, "chromem.DeleteAll")
	defer span.End()

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if s.db.GetCollection(ns.String(), noEmbedding) == nil {
		return nil
	}
	if err := s.db.DeleteCollection(ns.String()); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting collection %s: %w", ns, err)
	}
	s.logger.Debug("dropped namespace collection", zap.String("namespace", ns.String()))
	return nil
}

// Dimensions returns the configured vector size
func (s *Index) Dimensions() int {
	return s.dimensions
}

// HealthCheck always succeeds for the embedded store
func (s *Index) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op; persistent writes are synchronous
func (s *Index) Close() error {
	return nil
}
