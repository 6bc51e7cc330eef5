package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

func TestOpenAILLM_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Parking is free [1]."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer server.Close()

	llm, err := NewOpenAILLM("sk-test", "", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAILLM: %v", err)
	}

	text, err := llm.Generate(context.Background(), driven.GenerateRequest{
		System:      "system",
		User:        "is parking free?",
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Parking is free [1]." {
		t.Errorf("unexpected text %q", text)
	}

	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", body["messages"])
	}
	if role := msgs[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("expected system role first, got %v", role)
	}
}

func TestModelBase(t *testing.T) {
	if got := modelBase("nomic-embed-text:latest"); got != "nomic-embed-text" {
		t.Errorf("got %s", got)
	}
	if got := modelBase("text-embedding-3-small"); got != "text-embedding-3-small" {
		t.Errorf("got %s", got)
	}
}
