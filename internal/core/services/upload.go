package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure uploadService implements UploadService
var _ driving.UploadService = (*uploadService)(nil)

const (
	defaultMaxUploadBytes = 20 << 20
	defaultStuckAfter     = 15 * time.Minute
	defaultFileName       = "document.pdf"

	stuckMessage = "ingestion timed out"
)

var pdfMagic = []byte("%PDF-")

// UploadServiceConfig holds dependencies for the upload service
type UploadServiceConfig struct {
	TenantStore driven.TenantStore
	UploadStore driven.UploadStore
	BlobStore   driven.BlobStore
	TaskQueue   driven.TaskQueue

	// MaxBytes bounds the accepted file size
	MaxBytes int64
	// StuckAfter is how long processing may last before a status read reports error
	StuckAfter time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

type uploadService struct {
	tenants    driven.TenantStore
	uploads    driven.UploadStore
	blobs      driven.BlobStore
	queue      driven.TaskQueue
	maxBytes   int64
	stuckAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewUploadService creates a new UploadService
func NewUploadService(cfg UploadServiceConfig) driving.UploadService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxUploadBytes
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = defaultStuckAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &uploadService{
		tenants:    cfg.TenantStore,
		uploads:    cfg.UploadStore,
		blobs:      cfg.BlobStore,
		queue:      cfg.TaskQueue,
		maxBytes:   cfg.MaxBytes,
		stuckAfter: cfg.StuckAfter,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Upload stores the file, flips the tenant to processing and enqueues ingestion
func (s *uploadService) Upload(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	if int64(len(req.Data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, s.maxBytes)
	}
	if !bytes.HasPrefix(req.Data, pdfMagic) {
		return nil, fmt.Errorf("%w: file is not a PDF", domain.ErrInvalidInput)
	}

	if _, err := s.tenants.Ensure(ctx, ref); err != nil {
		return nil, fmt.Errorf("ensure tenant: %w", err)
	}

	upload := &domain.Upload{
		TenantID:  ref.ID,
		Namespace: ref.Namespace,
		UploadID:  domain.GenerateID(),
		FileName:  cleanFileName(req.FileName),
		FileSize:  int64(len(req.Data)),
		Status:    domain.UploadStatusProcessing,
		StartedAt: s.now(),
	}
	upload.UpdatedAt = upload.StartedAt

	key := blobKey(upload.Namespace, upload.UploadID)
	if err := s.blobs.Put(ctx, key, req.Data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if err := s.uploads.StartProcessing(ctx, upload); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return nil, fmt.Errorf("start processing: %w", err)
	}

	if err := s.queue.Enqueue(ctx, domain.NewIngestTask(upload)); err != nil {
		s.logger.Error("failed to enqueue ingestion",
			zap.String("namespace", upload.Namespace.String()),
			zap.String("upload_id", upload.UploadID),
			zap.Error(err))
		_ = s.uploads.MarkError(ctx, upload.TenantID, upload.UploadID, "could not schedule ingestion")
		_ = s.blobs.Delete(ctx, key)
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}

	s.logger.Info("upload accepted",
		zap.String("namespace", upload.Namespace.String()),
		zap.String("upload_id", upload.UploadID),
		zap.String("file_name", upload.FileName),
		zap.Int64("bytes", upload.FileSize))

	return upload, nil
}

// Status reports the tenant's document status. A processing row older than
// the stuck limit is moved to error before it is reported.
func (s *uploadService) Status(ctx context.Context, ref domain.TenantRef) (*domain.UploadStatusView, error) {
	upload, err := s.uploads.Get(ctx, ref.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewIdleUpload(ref).View(), nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !upload.IsStuck(now, s.stuckAfter) {
		return upload.View(), nil
	}

	err = s.uploads.MarkError(ctx, ref.ID, upload.UploadID, stuckMessage)
	switch {
	case err == nil:
		s.logger.Warn("ingestion timed out",
			zap.String("namespace", upload.Namespace.String()),
			zap.String("upload_id", upload.UploadID),
			zap.Duration("age", now.Sub(upload.StartedAt)))
	case errors.Is(err, domain.ErrSuperseded):
		// Finished or replaced between the read and the write
		fresh, getErr := s.uploads.Get(ctx, ref.ID)
		if getErr != nil {
			return nil, getErr
		}
		return fresh.View(), nil
	default:
		s.logger.Error("failed to persist ingestion timeout", zap.Error(err))
	}

	upload.Status = domain.UploadStatusError
	upload.Error = stuckMessage
	upload.UpdatedAt = now
	return upload.View(), nil
}

// blobKey locates the raw upload between request and ingestion
func blobKey(ns domain.Namespace, uploadID string) string {
	return ns.String() + "/" + uploadID + ".pdf"
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return defaultFileName
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
