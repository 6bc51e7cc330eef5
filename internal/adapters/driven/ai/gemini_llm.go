package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure GeminiLLM implements LLMService
var _ driven.LLMService = (*GeminiLLM)(nil)

const defaultGeminiChatModel = "gemini-1.5-flash"

// GeminiLLM implements LLMService using generateContent
type GeminiLLM struct {
	client *geminiClient
	model  string
}

// NewGeminiLLM creates a new Gemini generation service
func NewGeminiLLM(apiKey, model, baseURL string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiChatModel
	}
	return &GeminiLLM{
		client: newGeminiClient(apiKey, baseURL, 90*time.Second),
		model:  model,
	}, nil
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Generate runs a single system + user turn
func (l *GeminiLLM) Generate(ctx context.Context, req driven.GenerateRequest) (string, error) {
	body := geminiGenerateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.User}},
		}},
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	var resp geminiGenerateResponse
	if err := l.client.post(ctx, l.model, "generateContent", body, &resp); err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("Gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// Model returns the model name being used
func (l *GeminiLLM) Model() string {
	return l.model
}

// Ping verifies the generation endpoint answers
func (l *GeminiLLM) Ping(ctx context.Context) error {
	_, err := l.Generate(ctx, driven.GenerateRequest{User: "ping", Temperature: 0})
	return err
}

// Close releases idle connections
func (l *GeminiLLM) Close() error {
	l.client.close()
	return nil
}
