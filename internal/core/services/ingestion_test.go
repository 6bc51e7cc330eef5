package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brochurebot/internal/chunker"
	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven/mocks"
)

type ingestFixture struct {
	uploads  *mocks.MockUploadStore
	blobs    *mocks.MockBlobStore
	parser   *mocks.MockDocumentParser
	index    *mocks.MockVectorIndex
	embedder *mocks.MockEmbeddingService
	lock     *mocks.MockDistributedLock
	svc      *IngestionService
}

func newIngestFixture(withEmbedder bool) *ingestFixture {
	f := &ingestFixture{
		uploads:  mocks.NewMockUploadStore(),
		blobs:    mocks.NewMockBlobStore(),
		parser:   mocks.NewMockDocumentParser(brochurePages()...),
		index:    mocks.NewMockVectorIndex(64),
		embedder: mocks.NewMockEmbeddingService(),
		lock:     mocks.NewMockDistributedLock(),
	}
	embedder := f.embedder
	if !withEmbedder {
		embedder = nil
	}
	f.svc = NewIngestionService(IngestionServiceConfig{
		UploadStore: f.uploads,
		BlobStore:   f.blobs,
		Parser:      f.parser,
		Chunker:     chunker.New(chunker.DefaultConfig()),
		Index:       f.index,
		Lock:        f.lock,
		Services:    newTestRuntime(embedder, nil),
		LockTTL:     time.Minute,
	})
	return f
}

// seed stores a processing upload with its blob and returns its task
func (f *ingestFixture) seed(t *testing.T, ref domain.TenantRef, uploadID string) *domain.Task {
	t.Helper()
	upload := domain.Upload{
		TenantID:  ref.ID,
		Namespace: ref.Namespace,
		UploadID:  uploadID,
		FileName:  "brochure.pdf",
		Status:    domain.UploadStatusProcessing,
		StartedAt: time.Now(),
	}
	f.uploads.Put(upload)
	require.NoError(t, f.blobs.Put(context.Background(), blobKey(ref.Namespace, uploadID), []byte("%PDF-1.7")))
	return domain.NewIngestTask(&upload)
}

func (f *ingestFixture) status(t *testing.T, ref domain.TenantRef) *domain.Upload {
	t.Helper()
	u, err := f.uploads.Get(context.Background(), ref.ID)
	require.NoError(t, err)
	return u
}

func TestIngestionService_ProcessTask(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	task := f.seed(t, ref, "u1")

	result, err := f.svc.ProcessTask(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Pages)
	assert.GreaterOrEqual(t, result.Chunks, 1)

	u := f.status(t, ref)
	assert.Equal(t, domain.UploadStatusReady, u.Status)
	assert.Equal(t, 3, u.Pages)
	assert.Equal(t, result.Chunks, u.Chunks)

	ns := ref.Namespace.String()
	assert.Equal(t, []string{"deleteAll:" + ns, "upsert:" + ns}, f.index.Ops, "delete-all must precede upsert")
	assert.Equal(t, result.Chunks, f.index.Count(ref.Namespace))

	for _, c := range f.index.Chunks(ref.Namespace) {
		assert.Equal(t, ref.Namespace, c.Namespace)
		assert.Equal(t, "u1", c.UploadID)
		assert.Equal(t, "brochure.pdf", c.Source)
		assert.Equal(t, domain.ChunkID(ref.Namespace, "u1", c.Position), c.ID)
	}

	assert.False(t, f.blobs.Has(blobKey(ref.Namespace, "u1")), "blob is removed after ingestion")
	assert.Equal(t, []string{LockName(ref.Namespace)}, f.lock.Released)
	assert.False(t, f.lock.IsHeld(LockName(ref.Namespace)))
}

func TestIngestionService_ProcessTaskLockHeld(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	task := f.seed(t, ref, "u1")
	f.lock.SetLockHeld(LockName(ref.Namespace), time.Minute)

	_, err := f.svc.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Equal(t, 0, f.parser.Calls)
	assert.Empty(t, f.index.Ops)
	assert.Equal(t, domain.UploadStatusProcessing, f.status(t, ref).Status)
}

func TestIngestionService_ProcessTaskSuperseded(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	stale := f.seed(t, ref, "older")
	f.seed(t, ref, "newer")

	result, err := f.svc.ProcessTask(context.Background(), stale)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.ErrSuperseded.Error(), result.Error)
	assert.Equal(t, 0, f.parser.Calls)
	assert.Empty(t, f.index.Ops)

	u := f.status(t, ref)
	assert.Equal(t, "newer", u.UploadID)
	assert.Equal(t, domain.UploadStatusProcessing, u.Status)
	assert.False(t, f.blobs.Has(blobKey(ref.Namespace, "older")))
	assert.True(t, f.blobs.Has(blobKey(ref.Namespace, "newer")))
}

func TestIngestionService_ProcessTaskFailures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(f *ingestFixture)
		embedder    bool
		wantMessage string
	}{
		{
			name: "unreadable pdf",
			setup: func(f *ingestFixture) {
				f.parser.Err = fmt.Errorf("%w: malformed xref", domain.ErrUnreadableDocument)
			},
			embedder:    true,
			wantMessage: "the PDF could not be read",
		},
		{
			name: "embedding provider failure",
			setup: func(f *ingestFixture) {
				f.embedder.Err = fmt.Errorf("%w: status 503", domain.ErrUpstreamProvider)
			},
			embedder:    true,
			wantMessage: "embedding provider failed",
		},
		{
			name: "dimension mismatch",
			setup: func(f *ingestFixture) {
				f.embedder.SetDimensions(32)
			},
			embedder:    true,
			wantMessage: "embedding dimension mismatch",
		},
		{
			name:        "embedding not configured",
			setup:       func(f *ingestFixture) {},
			embedder:    false,
			wantMessage: "embedding provider not configured",
		},
		{
			name: "index write failure",
			setup: func(f *ingestFixture) {
				f.index.UpsertErr = errors.New("qdrant unavailable")
			},
			embedder:    true,
			wantMessage: domain.ErrIngestionFailed.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture(tt.embedder)
			ref := testRef(t, "owner@grandhall.test")
			task := f.seed(t, ref, "u1")
			tt.setup(f)

			result, err := f.svc.ProcessTask(context.Background(), task)
			require.NoError(t, err, "pipeline failures are final")
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMessage, result.Error)

			u := f.status(t, ref)
			assert.Equal(t, domain.UploadStatusError, u.Status)
			assert.Equal(t, tt.wantMessage, u.Error)
			assert.False(t, f.lock.IsHeld(LockName(ref.Namespace)))
		})
	}
}

func TestIngestionService_FailedEmbeddingKeepsPreviousDocument(t *testing.T) {
	f := newIngestFixture(true)
	ctx := context.Background()
	ref := testRef(t, "owner@grandhall.test")

	_, err := f.svc.ProcessTask(ctx, f.seed(t, ref, "u1"))
	require.NoError(t, err)
	before := f.index.Count(ref.Namespace)
	require.Positive(t, before)

	f.embedder.Err = fmt.Errorf("%w: status 500", domain.ErrUpstreamProvider)
	_, err = f.svc.ProcessTask(ctx, f.seed(t, ref, "u2"))
	require.NoError(t, err)

	assert.Equal(t, domain.UploadStatusError, f.status(t, ref).Status)
	assert.Equal(t, before, f.index.Count(ref.Namespace))
}

func TestIngestionService_EmptyExtraction(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	f.parser.Pages = []domain.Page{{Number: 1, Text: ""}, {Number: 2, Text: "  12  "}}

	result, err := f.svc.ProcessTask(context.Background(), f.seed(t, ref, "u1"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Chunks)

	u := f.status(t, ref)
	assert.Equal(t, domain.UploadStatusReady, u.Status)
	assert.Equal(t, 2, u.Pages)
	assert.Equal(t, 0, u.Chunks)
	assert.Equal(t, []string{"deleteAll:" + ref.Namespace.String()}, f.index.Ops)
	assert.Equal(t, 0, f.embedder.EmbedCalls)
}

func TestIngestionService_ReplaceSemantics(t *testing.T) {
	f := newIngestFixture(true)
	ctx := context.Background()
	ref := testRef(t, "owner@grandhall.test")

	_, err := f.svc.ProcessTask(ctx, f.seed(t, ref, "doc-a"))
	require.NoError(t, err)

	f.parser.Pages = []domain.Page{{Number: 1, Text: "The Orangery is a glass conservatory for intimate dinners of up to forty."}}
	_, err = f.svc.ProcessTask(ctx, f.seed(t, ref, "doc-b"))
	require.NoError(t, err)

	vector, err := f.embedder.EmbedQuery(ctx, "Capacity: 200 guests seated")
	require.NoError(t, err)
	hits, err := f.index.Search(ctx, ref.Namespace, vector, 10)
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "doc-b", hit.Chunk.UploadID, "no chunk of the replaced document may remain")
		assert.NotContains(t, hit.Chunk.Content, "200 guests")
	}
}

func TestIngestionService_ProcessTaskMalformed(t *testing.T) {
	f := newIngestFixture(true)
	task := domain.NewTask(domain.TaskTypeIngestDocument, "owner@grandhall.test", map[string]string{
		domain.PayloadNamespace: "not-a-namespace",
		domain.PayloadUploadID:  "u1",
	})

	result, err := f.svc.ProcessTask(context.Background(), task)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, f.lock.Released, "lock is never taken")
}

func TestIngestionService_ProcessTaskInterrupted(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	task := f.seed(t, ref, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	f.parser.ParseFn = func(data []byte) ([]domain.Page, error) {
		cancel()
		return nil, context.Canceled
	}

	_, err := f.svc.ProcessTask(ctx, task)
	require.Error(t, err, "interrupted work is redelivered")
	assert.Equal(t, domain.UploadStatusProcessing, f.status(t, ref).Status)
	assert.False(t, f.lock.IsHeld(LockName(ref.Namespace)))
}

func TestIngestionService_ProcessTaskLockLost(t *testing.T) {
	f := newIngestFixture(true)
	f.svc.lockTTL = 30 * time.Millisecond
	ref := testRef(t, "owner@grandhall.test")
	task := f.seed(t, ref, "u1")

	lost := make(chan struct{})
	var once sync.Once
	f.lock.ExtendFn = func(name string, ttl time.Duration) error {
		once.Do(func() { close(lost) })
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockHeld)
	}
	f.parser.ParseFn = func(data []byte) ([]domain.Page, error) {
		select {
		case <-lost:
		case <-time.After(5 * time.Second):
			t.Error("lease was never extended")
		}
		time.Sleep(50 * time.Millisecond)
		return brochurePages(), nil
	}

	_, err := f.svc.ProcessTask(context.Background(), task)
	require.Error(t, err, "work under a lost lock is redelivered")
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Empty(t, f.index.Ops, "namespace is not touched without the lock")
	assert.Equal(t, domain.UploadStatusProcessing, f.status(t, ref).Status)
}

func TestIngestionService_LateReadyKeepsTimeout(t *testing.T) {
	f := newIngestFixture(true)
	ref := testRef(t, "owner@grandhall.test")
	task := f.seed(t, ref, "u1")

	f.parser.ParseFn = func(data []byte) ([]domain.Page, error) {
		// the stuck-upload check fails the row while the worker is still busy
		require.NoError(t, f.uploads.MarkError(context.Background(), ref.ID, "u1", "ingestion timed out"))
		return brochurePages(), nil
	}

	result, err := f.svc.ProcessTask(context.Background(), task)
	require.NoError(t, err)
	assert.True(t, result.Success)

	u := f.status(t, ref)
	assert.Equal(t, domain.UploadStatusError, u.Status)
	assert.Equal(t, "ingestion timed out", u.Error)
}

func TestIngestFailureMessage(t *testing.T) {
	assert.Equal(t, "uploaded file is missing", IngestFailureMessage(fmt.Errorf("load: %w", domain.ErrNotFound)))
	assert.Equal(t, "ingestion failed", IngestFailureMessage(errors.New("boom")))
}
