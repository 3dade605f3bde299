package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type verdict struct {
	Key string `json:"key"`
	Num int    `json:"num"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want verdict
	}{
		{"plain", `{"key": "value", "num": 42}`, verdict{"value", 42}},
		{"json fence", "```json\n{\"key\": \"value\"}\n```", verdict{Key: "value"}},
		{"plain fence", "```\n{\"key\": \"value\"}\n```", verdict{Key: "value"}},
		{"whitespace", "  \n  {\"key\": \"value\"}  \n  ", verdict{Key: "value"}},
		{"surrounding prose", `Sure! Here it is: {"key": "value", "num": 1} Hope that helps.`, verdict{"value", 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got verdict
			if err := DecodeJSON(tt.text, &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDecodeJSONNoObject(t *testing.T) {
	for _, text := range []string{"", "not json at all", "} backwards {"} {
		var v verdict
		if err := DecodeJSON(text, &v); !errors.Is(err, ErrNoJSON) {
			t.Errorf("%q: expected ErrNoJSON, got %v", text, err)
		}
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	var v verdict
	if err := DecodeJSON(`{"key": }`, &v); err == nil || errors.Is(err, ErrNoJSON) {
		t.Errorf("expected a syntax error, got %v", err)
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "llama-3.1-8b-instant" {
			t.Errorf("unexpected model %v", body["model"])
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"YES"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("AIDIGEST_LLM_KEY", "test-key")
	p := NewOpenAIProvider("llama-3.1-8b-instant", "AIDIGEST_LLM_KEY", srv.URL+"/")
	if !p.IsConfigured() {
		t.Fatal("expected provider to be configured")
	}
	out, err := p.Generate(context.Background(), "hello", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "YES" {
		t.Errorf("expected YES, got %q", out)
	}
}

func TestOpenAIProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("AIDIGEST_LLM_KEY", "test-key")
	p := NewOpenAIProvider("m", "AIDIGEST_LLM_KEY", srv.URL)
	if _, err := p.Generate(context.Background(), "hello", 16); err == nil {
		t.Error("expected error on 429")
	}
}

func TestOpenAIProviderWithoutKey(t *testing.T) {
	t.Setenv("AIDIGEST_MISSING_KEY", "")
	p := NewOpenAIProvider("m", "AIDIGEST_MISSING_KEY", "")
	if p.IsConfigured() {
		t.Error("expected unconfigured provider")
	}
	if _, err := p.Generate(context.Background(), "hello", 16); err == nil {
		t.Error("expected error without key")
	}
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	t.Setenv("AIDIGEST_EMBED_KEY", "k")
	e := NewOpenAIEmbedder("text-embedding-3-small", "AIDIGEST_EMBED_KEY", srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("expected embeddings ordered by index, got %v", vecs)
	}

	one, err := EmbedOne(context.Background(), e, "a")
	if err == nil {
		t.Errorf("expected count error for two embeddings, got %v", one)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
	}))
	defer srv.Close()

	vec, err := EmbedOne(context.Background(), NewOllamaEmbedder("nomic-embed-text", srv.URL), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("expected 2 dims, got %d", len(vec))
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ string, _ int) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(2 * time.Second):
		return "late", nil
	}
}

func (slowProvider) IsConfigured() bool { return true }

func TestWithTimeoutExpires(t *testing.T) {
	p := WithTimeout(slowProvider{}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), "x", 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(nil, time.Second) != nil {
		t.Error("expected nil provider to stay nil")
	}
}

func TestCreateProviderWithoutKey(t *testing.T) {
	t.Setenv("AIDIGEST_MISSING_KEY", "")
	p := CreateProvider(ProviderConfig{Provider: "groq", Model: "m", APIKeyEnv: "AIDIGEST_MISSING_KEY"})
	if p != nil {
		t.Error("expected nil provider without key")
	}
	if e := CreateEmbedder(ProviderConfig{Provider: "openai", APIKeyEnv: "AIDIGEST_MISSING_KEY"}); e != nil {
		t.Error("expected nil embedder without key")
	}
}
