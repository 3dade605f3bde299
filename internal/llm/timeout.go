package llm

import (
	"context"
	"fmt"
	"time"
)

// timeoutProvider bounds every Generate call with its own deadline. Errors
// are passed through untouched; each caller decides what a failure means.
type timeoutProvider struct {
	Provider
	timeout time.Duration
}

// WithTimeout wraps p so each call gets at most d. A nil p or a
// non-positive d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if p == nil || d <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Generate(ctx, prompt, maxTokens)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
