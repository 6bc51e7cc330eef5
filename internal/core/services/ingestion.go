package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

// Ensure IngestionService implements driving.IngestionService
var _ driving.IngestionService = (*IngestionService)(nil)

const (
	defaultIngestLockTTL = 10 * time.Minute
	releaseTimeout       = 5 * time.Second
)

// errLockLost cancels an ingestion whose namespace lock could not be extended
var errLockLost = fmt.Errorf("%w: ingestion lock lease lost", domain.ErrLockHeld)

// IngestionService runs the ingestion pipeline for one upload:
//  1. Acquire the namespace lock
//  2. Skip uploads that were superseded
//  3. Parse the stored PDF into pages
//  4. Chunk pages into passages
//  5. Embed every passage
//  6. Delete the namespace, then upsert the new vectors
//  7. Mark the upload ready or error
type IngestionService struct {
	uploads  driven.UploadStore
	blobs    driven.BlobStore
	parser   driven.DocumentParser
	chunker  driven.Chunker
	index    driven.VectorIndex
	lock     driven.DistributedLock
	services *runtime.Services
	lockTTL  time.Duration
	logger   *zap.Logger
}

// IngestionServiceConfig holds dependencies for IngestionService.
type IngestionServiceConfig struct {
	UploadStore driven.UploadStore
	BlobStore   driven.BlobStore
	Parser      driven.DocumentParser
	Chunker     driven.Chunker
	Index       driven.VectorIndex
	Lock        driven.DistributedLock
	Services    *runtime.Services
	// LockTTL is the namespace lock lease; it is extended while ingestion runs
	LockTTL time.Duration
	Logger  *zap.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionServiceConfig) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultIngestLockTTL
	}

	return &IngestionService{
		uploads:  cfg.UploadStore,
		blobs:    cfg.BlobStore,
		parser:   cfg.Parser,
		chunker:  cfg.Chunker,
		index:    cfg.Index,
		lock:     cfg.Lock,
		services: cfg.Services,
		lockTTL:  ttl,
		logger:   logger,
	}
}

// LockName is the distributed lock serialising ingestion of a namespace
func LockName(ns domain.Namespace) string {
	return "ingest:" + ns.String()
}

// Ingest replaces the namespace content with the chunks of one document.
// Everything is embedded before the namespace is touched, so embedding
// failures leave the previous document searchable.
func (s *IngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	if !req.Namespace.Valid() {
		return nil, fmt.Errorf("%w: invalid namespace %q", domain.ErrInvalidInput, req.Namespace)
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider not configured", domain.ErrServiceUnavailable)
	}

	pages, err := s.parser.Parse(ctx, req.Data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	chunks := s.chunker.Split(pages)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunk.ID = domain.ChunkID(req.Namespace, req.UploadID, chunk.Position)
		chunk.Namespace = req.Namespace
		chunk.UploadID = req.UploadID
		chunk.Source = req.FileName
		texts[i] = chunk.Content
	}

	embedded, err := s.embed(ctx, embedder, chunks, texts)
	if err != nil {
		return nil, err
	}

	// Nothing destructive once the caller has given up, e.g. lost the lock.
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	if err := s.index.DeleteAll(ctx, req.Namespace); err != nil {
		return nil, fmt.Errorf("clear namespace: %w", err)
	}
	if len(embedded) > 0 {
		if err := s.index.Upsert(ctx, req.Namespace, embedded); err != nil {
			return nil, fmt.Errorf("upsert: %w", err)
		}
	}

	return &domain.IngestResult{Pages: len(pages), Chunks: len(chunks)}, nil
}

func (s *IngestionService) embed(ctx context.Context, embedder driven.EmbeddingService, chunks []*domain.Chunk, texts []string) ([]*domain.EmbeddedChunk, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed: %w: got %d vectors for %d chunks", domain.ErrUpstreamProvider, len(vectors), len(chunks))
	}

	dims := s.index.Dimensions()
	embedded := make([]*domain.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != dims {
			return nil, fmt.Errorf("embed: %w: expected %d, got %d", domain.ErrDimensionMismatch, dims, len(vectors[i]))
		}
		embedded[i] = &domain.EmbeddedChunk{Chunk: chunk, Vector: vectors[i]}
	}
	return embedded, nil
}

// ProcessTask runs an ingest task. It returns an error only when the task
// should be redelivered: the namespace lock is held elsewhere, the state
// store is unreachable, or ctx was cancelled. Pipeline failures are final
// and recorded on the upload.
func (s *IngestionService) ProcessTask(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
	start := time.Now()
	result := &domain.TaskResult{TaskID: task.ID}

	tenantID := domain.TenantID(task.TenantID)
	ns := task.Namespace()
	uploadID := task.UploadID()
	if tenantID == "" || uploadID == "" || !ns.Valid() {
		result.Error = "malformed ingest task"
		return result, nil
	}

	log := s.logger.With(
		zap.String("task_id", task.ID),
		zap.String("namespace", ns.String()),
		zap.String("upload_id", uploadID))

	lockName := LockName(ns)
	acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockName, err)
	}
	if !acquired {
		return nil, fmt.Errorf("acquire %s: %w", lockName, domain.ErrLockHeld)
	}
	defer s.release(lockName, log)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := s.keepAlive(ctx, cancel, lockName, log)
	defer stop()

	current, err := s.uploads.Get(ctx, tenantID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load upload: %w", err)
	}
	if current == nil || current.UploadID != uploadID || current.Status != domain.UploadStatusProcessing {
		log.Info("skipping superseded upload")
		_ = s.blobs.Delete(ctx, blobKey(ns, uploadID))
		result.Success = true
		result.Error = domain.ErrSuperseded.Error()
		result.Duration = time.Since(start)
		return result, nil
	}

	key := blobKey(ns, uploadID)
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		err = fmt.Errorf("load upload data: %w", err)
	}

	var res *domain.IngestResult
	if err == nil {
		res, err = s.Ingest(ctx, driving.IngestRequest{
			Namespace: ns,
			UploadID:  uploadID,
			FileName:  current.FileName,
			Data:      data,
		})
	}

	if (err != nil && ctx.Err() != nil) || errors.Is(context.Cause(ctx), errLockLost) {
		return nil, fmt.Errorf("ingestion interrupted: %w", context.Cause(ctx))
	}

	if err != nil {
		message := IngestFailureMessage(err)
		log.Error("ingestion failed", zap.Error(err))
		if markErr := s.uploads.MarkError(ctx, tenantID, uploadID, message); markErr != nil && !errors.Is(markErr, domain.ErrSuperseded) {
			log.Error("failed to record ingestion error", zap.Error(markErr))
		}
		_ = s.blobs.Delete(ctx, key)
		result.Error = message
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := s.uploads.MarkReady(ctx, tenantID, uploadID, *res); err != nil {
		if !errors.Is(err, domain.ErrSuperseded) {
			return nil, fmt.Errorf("mark ready: %w", err)
		}
		log.Info("upload superseded during ingestion")
	}
	_ = s.blobs.Delete(ctx, key)

	result.Success = true
	result.Pages = res.Pages
	result.Chunks = res.Chunks
	result.Duration = time.Since(start)

	log.Info("ingestion complete",
		zap.Int("pages", res.Pages),
		zap.Int("chunks", res.Chunks),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// keepAlive extends the lock lease until the returned stop func is called.
// When the lease turns out to be lost it cancels the ingestion with
// errLockLost.
func (s *IngestionService) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, name string, log *zap.Logger) func() {
	done := make(chan struct{})
	ticker := time.NewTicker(s.lockTTL / 3)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.lock.Extend(ctx, name, s.lockTTL)
				if errors.Is(err, domain.ErrLockHeld) {
					log.Error("ingestion lock lost, abandoning task", zap.Error(err))
					cancel(errLockLost)
					return
				}
				if err != nil {
					log.Warn("failed to extend ingestion lock", zap.Error(err))
				}
			}
		}
	}()

	return func() { close(done) }
}

func (s *IngestionService) release(name string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(ctx, name); err != nil {
		log.Warn("failed to release ingestion lock", zap.Error(err))
	}
}

// IngestFailureMessage maps a pipeline error to the message stored on the upload
func IngestFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnreadableDocument):
		return "the PDF could not be read"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "embedding dimension mismatch"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "embedding provider not configured"
	case errors.Is(err, domain.ErrUpstreamProvider):
		return "embedding provider failed"
	case errors.Is(err, domain.ErrNotFound):
		return "uploaded file is missing"
	default:
		return domain.ErrIngestionFailed.Error()
	}
}
