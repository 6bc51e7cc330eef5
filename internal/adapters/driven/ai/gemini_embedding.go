package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure GeminiEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*GeminiEmbedding)(nil)

const defaultGeminiEmbeddingModel = "text-embedding-004"

// Default output sizes for Gemini embedding models
var geminiModelDimensions = map[string]int{
	"text-embedding-004":   768,
	"embedding-001":        768,
	"gemini-embedding-001": 3072,
}

// GeminiEmbedding implements EmbeddingService using batchEmbedContents
type GeminiEmbedding struct {
	client     *geminiClient
	model      string
	dimensions int
	// explicit is true when the caller asked for a specific output size
	explicit bool
}

// NewGeminiEmbedding creates a new Gemini embedding service.
// dimensions <= 0 selects the model's native size.
func NewGeminiEmbedding(apiKey, model, baseURL string, dimensions int) (*GeminiEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiEmbeddingModel
	}

	explicit := dimensions > 0
	if !explicit {
		d, ok := geminiModelDimensions[model]
		if !ok {
			d = 768
		}
		dimensions = d
	}

	return &GeminiEmbedding{
		client:     newGeminiClient(apiKey, baseURL, 60*time.Second),
		model:      model,
		dimensions: dimensions,
		explicit:   explicit,
	}, nil
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed generates document embeddings for multiple texts
func (e *GeminiEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery generates an embedding tuned for retrieval queries
func (e *GeminiEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{query}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vecs[0], nil
}

func (e *GeminiEmbedding) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	name := "models/" + e.model
	body := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		body.Requests[i] = geminiEmbedRequest{
			Model:    name,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: taskType,
		}
		if e.explicit {
			body.Requests[i].OutputDimensionality = e.dimensions
		}
	}

	var resp geminiBatchEmbedResponse
	if err := e.client.post(ctx, e.model, "batchEmbedContents", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions returns the embedding dimension size
func (e *GeminiEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *GeminiEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *GeminiEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *GeminiEmbedding) Close() error {
	e.client.close()
	return nil
}
