package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

var tracer = otel.Tracer("brochurebot.vectorindex.vespa")

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// Config holds Vespa connection configuration
type Config struct {
	// BaseURL is the Vespa container endpoint (e.g., http://localhost:8080)
	BaseURL string

	// ConfigURL is the config server used for schema deployment (e.g., http://localhost:19071)
	ConfigURL string

	// DocNamespace is the Vespa document namespace in document/v1 paths
	DocNamespace string

	// Cluster is the content cluster name
	Cluster string

	// Dimensions is the embedding vector size in the schema
	Dimensions int

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string, dimensions int) Config {
	return Config{
		BaseURL:      baseURL,
		DocNamespace: "brochurebot",
		Cluster:      "brochurebot",
		Dimensions:   dimensions,
		Timeout:      30 * time.Second,
	}
}

// Index implements driven.VectorIndex on a single Vespa document type.
// Tenants share the type and are separated by the tenant_ns attribute.
type Index struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
}

// NewIndex creates a new Vespa-backed index
func NewIndex(cfg Config) (*Index, error) {
	base, err := validateEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vespa index requires a positive vector size")
	}
	if cfg.DocNamespace == "" {
		cfg.DocNamespace = "brochurebot"
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "brochurebot"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Index{
		baseURL:    base,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// vespaDocument represents a document in Vespa format
type vespaDocument struct {
	Fields vespaFields `json:"fields"`
}

type vespaFields struct {
	ID        string `json:"id"`
	Namespace string `json:"tenant_ns"`
	UploadID  string `json:"upload_id"`
	Source    string `json:"source"`
	Page      int    `json:"page"`
	Position  int    `json:"position"`
	Content   string `json:"content"`
	// Embedding is only sent on feed; summaries omit it
	Embedding *vespaTensor `json:"embedding,omitempty"`
}

type vespaTensor struct {
	Values []float32 `json:"values"`
}

// Upsert feeds each chunk by ID; a repeated ID replaces the document
func (s *Index) Upsert(ctx context.Context, ns domain.Namespace, chunks []*domain.EmbeddedChunk) error {
	ctx, span := tracer.Start(ctx, "vespa.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("chunks", len(chunks)))

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}

	for _, ec := range chunks {
		if len(ec.Vector) != s.cfg.Dimensions {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.cfg.Dimensions, len(ec.Vector))
		}
		if err := s.feed(ctx, ns, ec); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to index chunk %s: %w", ec.Chunk.ID, err)
		}
	}
	return nil
}

func (s *Index) feed(ctx context.Context, ns domain.Namespace, ec *domain.EmbeddedChunk) error {
	c := ec.Chunk
	doc := vespaDocument{
		Fields: vespaFields{
			ID:        c.ID,
			Namespace: ns.String(),
			UploadID:  c.UploadID,
			Source:    c.Source,
			Page:      c.Page,
			Position:  c.Position,
			Content:   c.Content,
			Embedding: &vespaTensor{Values: ec.Vector},
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	// Vespa document API: POST /document/v1/{namespace}/{doctype}/docid/{docid}
	u := fmt.Sprintf("%s/document/v1/%s/chunk/docid/%s", s.baseURL, s.cfg.DocNamespace, url.PathEscape(c.ID))
	return s.do(ctx, http.MethodPost, u, body, nil)
}

// Search runs a nearestNeighbor query restricted to the namespace
func (s *Index) Search(ctx context.Context, ns domain.Namespace, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "vespa.Search")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()), attribute.Int("k", k))

	if !ns.Valid() {
		return nil, fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}
	if k <= 0 {
		return []*domain.ScoredChunk{}, nil
	}
	if len(vector) != s.cfg.Dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.cfg.Dimensions, len(vector))
	}

	searchReq := map[string]interface{}{
		"yql":             buildYQL(ns, k),
		"hits":            k,
		"input.query(q)":  vector,
		"ranking.profile": "semantic",
	}
	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, err
	}

	var searchResp vespaSearchResponse
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/search/", body, &searchResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("vespa search failed: %w", err)
	}

	results := make([]*domain.ScoredChunk, 0, len(searchResp.Root.Children))
	for _, hit := range searchResp.Root.Children {
		// The YQL filter already scopes hits; this guards against schema drift.
		if hit.Fields.Namespace != ns.String() {
			continue
		}
		results = append(results, &domain.ScoredChunk{
			Chunk: &domain.Chunk{
				ID:        hit.Fields.ID,
				Namespace: ns,
				UploadID:  hit.Fields.UploadID,
				Source:    hit.Fields.Source,
				Page:      hit.Fields.Page,
				Position:  hit.Fields.Position,
				Content:   hit.Fields.Content,
			},
			Score: hit.Relevance,
		})
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

func buildYQL(ns domain.Namespace, k int) string {
	return fmt.Sprintf(
		`select * from chunk where tenant_ns contains "%s" and ({targetHits:%d}nearestNeighbor(embedding,q))`,
		ns, k)
}

// vespaSearchResponse represents Vespa's search response format
type vespaSearchResponse struct {
	Root struct {
		Fields struct {
			TotalCount int64 `json:"totalCount"`
		} `json:"fields"`
		Children []struct {
			Relevance float64     `json:"relevance"`
			Fields    vespaFields `json:"fields"`
		} `json:"children"`
	} `json:"root"`
}

// DeleteAll removes every chunk of the namespace using a document selection
func (s *Index) DeleteAll(ctx context.Context, ns domain.Namespace) error {
	ctx, span := tracer.Start(ctx, "vespa.DeleteAll")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", ns.String()))

	if !ns.Valid() {
		return fmt.Errorf("%w: namespace %q", domain.ErrInvalidInput, ns)
	}

	selection := fmt.Sprintf(`chunk.tenant_ns=="%s"`, ns)
	base := fmt.Sprintf("%s/document/v1/%s/chunk/docid/?selection=%s&cluster=%s",
		s.baseURL, s.cfg.DocNamespace, url.QueryEscape(selection), url.QueryEscape(s.cfg.Cluster))

	// Vespa visits in slices; repeat with the continuation until it is empty.
	var (
		continuation string
		deleted      int
	)
	for {
		u := base
		if continuation != "" {
			u += "&continuation=" + url.QueryEscape(continuation)
		}
		var out visitResponse
		if err := s.do(ctx, http.MethodDelete, u, nil, &out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("vespa delete by selection failed: %w", err)
		}
		deleted += out.DocumentCount
		if out.Continuation == "" {
			break
		}
		continuation = out.Continuation
	}
	span.SetAttributes(attribute.Int("documents_deleted", deleted))
	return nil
}

// visitResponse is the document/v1 reply to a selection visit
type visitResponse struct {
	DocumentCount int    `json:"documentCount"`
	Continuation  string `json:"continuation"`
}

// Dimensions returns the configured vector size
func (s *Index) Dimensions() int {
	return s.cfg.Dimensions
}

// HealthCheck verifies the container is available
func (s *Index) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/state/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vespa health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vespa unhealthy: %s", resp.Status)
	}
	return nil
}

// Close releases idle connections
func (s *Index) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Index) do(ctx context.Context, method, u string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s - %s", resp.Status, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}
	return nil
}
