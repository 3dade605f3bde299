package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient lazily opens one genai client per API key.
type geminiClient struct {
	apiKey string

	once   sync.Once
	client *genai.Client
	err    error
}

func (g *geminiClient) get(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.err = genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	})
	return g.client, g.err
}

func (g *geminiClient) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// GeminiProvider generates text with Google Gemini.
type GeminiProvider struct {
	Model string
	geminiClient
}

// NewGeminiProvider creates a Gemini provider reading its key from apiKeyEnv.
func NewGeminiProvider(model, apiKeyEnv string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{Model: model, geminiClient: geminiClient{apiKey: os.Getenv(apiKeyEnv)}}
}

// IsConfigured checks if the API key is set.
func (g *GeminiProvider) IsConfigured() bool {
	return g.apiKey != ""
}

// Generate sends a prompt and concatenates the text parts of the first candidate.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	client, err := g.get(ctx)
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(g.Model)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return sb.String(), nil
}

// GeminiEmbedder generates embeddings with a Gemini embedding model.
type GeminiEmbedder struct {
	Model string
	geminiClient
}

// NewGeminiEmbedder creates a Gemini embedder reading its key from apiKeyEnv.
func NewGeminiEmbedder(model, apiKeyEnv string) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedder{Model: model, geminiClient: geminiClient{apiKey: os.Getenv(apiKeyEnv)}}
}

// IsConfigured checks if the API key is set.
func (g *GeminiEmbedder) IsConfigured() bool {
	return g.apiKey != ""
}

// Embed generates embeddings for the given texts in one batch.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	client, err := g.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	em := client.EmbeddingModel(g.Model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}
