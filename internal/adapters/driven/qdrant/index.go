// Package qdrant stores chunk vectors in a single Qdrant collection,
// partitioned by a keyword-indexed namespace payload.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

var tracer = otel.Tracer("brochurebot.vectorindex.qdrant")

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Payload keys
const (
	fieldNamespace = "tenant_ns"
	fieldChunkID   = "chunk_id"
	fieldUploadID  = "upload_id"
	fieldSource    = "source"
	fieldPage      = "page"
	fieldPosition  = "position"
	fieldContent   = "content"
)

// pointIDSpace seeds deterministic point UUIDs derived from chunk IDs
var pointIDSpace = uuid.MustParse("6f1c7a52-0d5e-4a8b-9a43-2b8f3c1e9d70")

// client is the subset of *qdrant.Client used by the index
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// Config holds Qdrant gRPC connection settings
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
	// MaxMessageSize bounds gRPC payloads in bytes
	MaxMessageSize int
}

// DefaultConfig returns defaults for a local Qdrant
func DefaultConfig(dimensions int) Config {
	return Config{
		Host:           "localhost",
		Port:           6334,
		Collection:     "brochurebot_chunks",
		Dimensions:     dimensions,
		MaxMessageSize: 50 * 1024 * 1024,
	}
}

// Index implements driven.VectorIndex on Qdrant
type Index struct {
	client     client
	collection string
	dimensions int

	mu     sync.Mutex
	ensure bool
}

// NewIndex dials Qdrant and returns an index. The collection is created on first write.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant index requires a positive vector size")
	}
	if cfg.Collection == "" {
		cfg.Collection = "brochurebot_chunks"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 50 * 1024 * 1024
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return newIndex(c, cfg.Collection, cfg.Dimensions), nil
}

func newIndex(c client, collection string, dimensions int) *Index {
	return &Index{client: c, collection: collection, dimensions: dimensions}
}

// ensureCollection creates the collection and namespace index once
func (s *Index) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensure {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collection, err)
		}
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      fieldNamespace,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating namespace index: %w", err)
		}
	}

	s.ensure = true
	return nil
}

// Upsert writes points keyed by a UUID derived from the chunk ID
func (s *Index) Upsert(ctx context.Context, ns domain.Namespace, chunks []*domain.EmbeddedChunk) error {
	ctx, span := tracer.Start(ctx, "qdrant.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("chunks", len(chunks)))

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ec := range chunks {
		if len(ec.Vector) != s.dimensions {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimensions, len(ec.Vector))
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(ec.Chunk.ID)),
			Vectors: qdrant.NewVectors(ec.Vector...),
			Payload: payload(ns, ec.Chunk),
		}
	}

	if err := s.ensureCollection(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points to %s: %w", s.collection, err)
	}
	return nil
}

// Search queries the nearest points whose namespace payload matches
func (s *Index) Search(ctx context.Context, ns domain.Namespace, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "qdrant.Search")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("k", k))

	if !ns.Valid() {
		return nil, fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if k <= 0 {
		return []*domain.ScoredChunk{}, nil
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimensions, len(vector))
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		return []*domain.ScoredChunk{}, nil
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         namespaceFilter(ns),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching %s: %w", s.collection, err)
	}

	results := make([]*domain.ScoredChunk, 0, len(points))
	for _, p := range points {
		c := chunkFromPayload(p.GetPayload())
		if c.Namespace != ns {
			continue
		}
		results = append(results, &domain.ScoredChunk{Chunk: c, Score: float64(p.GetScore())})
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// DeleteAll removes every point with the namespace payload
func (s *Index) DeleteAll(ctx context.Context, ns domain.Namespace) error {
	ctx, span := tracer.Start(ctx, "qdrant.DeleteAll")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()))

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		return nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: namespaceFilter(ns),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting namespace %s: %w", ns, err)
	}
	return nil
}

// Dimensions returns the configured vector size
func (s *Index) Dimensions() int {
	return s.dimensions
}

// HealthCheck pings the Qdrant server
func (s *Index) HealthCheck(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

// Close closes the gRPC connection
func (s *Index) Close() error {
	return s.client.Close()
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(pointIDSpace, []byte(chunkID)).String()
}

func namespaceFilter(ns domain.Namespace) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: fieldNamespace,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: ns.String()},
					},
				},
			},
		}},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(i int) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(i)}}
}

func payload(ns domain.Namespace, c *domain.Chunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		fieldNamespace: stringValue(ns.String()),
		fieldChunkID:   stringValue(c.ID),
		fieldUploadID:  stringValue(c.UploadID),
		fieldSource:    stringValue(c.Source),
		fieldPage:      intValue(c.Page),
		fieldPosition:  intValue(c.Position),
		fieldContent:   stringValue(c.Content),
	}
}

func chunkFromPayload(p map[string]*qdrant.Value) *domain.Chunk {
	return &domain.Chunk{
		ID:        p[fieldChunkID].GetStringValue(),
		Namespace: domain.Namespace(p[fieldNamespace].GetStringValue()),
		UploadID:  p[fieldUploadID].GetStringValue(),
		Source:    p[fieldSource].GetStringValue(),
		Page:      int(p[fieldPage].GetIntegerValue()),
		Position:  int(p[fieldPosition].GetIntegerValue()),
		Content:   p[fieldContent].GetStringValue(),
	}
}
