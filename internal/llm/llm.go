package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

const (
	openAIBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
)

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Warn().Str("model", o.Model).Msg("ollama model not found")
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"options": map[string]any{
			"num_predict": maxTokens,
			"temperature": 0.3,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/api/chat", "", body, &result); err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	return result.Message.Content, nil
}

// OllamaEmbedder generates embeddings via the Ollama API.
type OllamaEmbedder struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	return &OllamaEmbedder{
		Model:   model,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Embed generates embeddings for the given texts.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body := map[string]any{
		"model": e.Model,
		"input": texts,
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := postJSON(ctx, e.client, e.BaseURL+"/api/embed", "", body, &result); err != nil {
		return nil, fmt.Errorf("ollama embed error: %w", err)
	}
	return result.Embeddings, nil
}

// OpenAIProvider talks to any OpenAI-compatible chat completions API.
// Groq is served by the same wire format under a different base URL.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a provider for the given base URL. An empty
// baseURL means api.openai.com.
func NewOpenAIProvider(model, apiKeyEnv, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIProvider{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("API key not configured for %s", o.BaseURL)
	}

	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": 0.3,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/chat/completions", o.APIKey, body, &result); err != nil {
		return "", fmt.Errorf("chat completions error: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat completions response")
	}
	return result.Choices[0].Message.Content, nil
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIEmbedder creates an embedder. An empty baseURL means api.openai.com.
func NewOpenAIEmbedder(model, apiKeyEnv, baseURL string) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIEmbedder{
		Model:   model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (e *OpenAIEmbedder) IsConfigured() bool {
	return e.APIKey != ""
}

// Embed generates embeddings for the given texts, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body := map[string]any{
		"model": e.Model,
		"input": texts,
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := postJSON(ctx, e.client, e.BaseURL+"/embeddings", e.APIKey, body, &result); err != nil {
		return nil, fmt.Errorf("embeddings error: %w", err)
	}

	out := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	OllamaURL string
}

// CreateProvider creates an LLM provider based on configuration. It
// returns nil when the chosen provider is not usable.
func CreateProvider(cfg ProviderConfig) Provider {
	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		p = NewOllamaProvider(cfg.Model, cfg.OllamaURL)
	case "gemini":
		p = NewGeminiProvider(cfg.Model, cfg.APIKeyEnv)
	case "groq":
		base := cfg.BaseURL
		if base == "" {
			base = groqBaseURL
		}
		p = NewOpenAIProvider(cfg.Model, cfg.APIKeyEnv, base)
	default:
		p = NewOpenAIProvider(cfg.Model, cfg.APIKeyEnv, cfg.BaseURL)
	}

	if !p.IsConfigured() {
		log.Warn().Str("provider", cfg.Provider).Str("key_env", cfg.APIKeyEnv).Msg("no LLM provider available")
		return nil
	}
	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("using LLM provider")
	return p
}

// CreateEmbedder creates an embedder based on configuration. It returns
// nil when the chosen backend has no credentials.
func CreateEmbedder(cfg ProviderConfig) Embedder {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.OllamaURL)
	case "gemini":
		e := NewGeminiEmbedder(cfg.Model, cfg.APIKeyEnv)
		if !e.IsConfigured() {
			return nil
		}
		return e
	default:
		e := NewOpenAIEmbedder(cfg.Model, cfg.APIKeyEnv, cfg.BaseURL)
		if !e.IsConfigured() {
			return nil
		}
		return e
	}
}
