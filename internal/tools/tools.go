// Package tools holds the evidence-gathering tools used by the reasoning
// scorer. Each tool takes a string and returns a string observation; tool
// failures come back as explanatory text rather than errors.
package tools

import (
	"context"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Tool is one action available to the reasoning loop.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) string
}

// Set indexes tools by name, keeping registration order for prompts.
type Set struct {
	order []Tool
	byKey map[string]Tool
}

// NewSet builds a Set from tools.
func NewSet(tools ...Tool) *Set {
	s := &Set{byKey: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.order = append(s.order, t)
		s.byKey[t.Name()] = t
	}
	return s
}

// Get looks up a tool by exact name.
func (s *Set) Get(name string) (Tool, bool) {
	t, ok := s.byKey[name]
	return t, ok
}

// All returns tools in registration order.
func (s *Set) All() []Tool {
	return s.order
}

// Names returns the tool names in registration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.order))
	for i, t := range s.order {
		names[i] = t.Name()
	}
	return names
}

// Options configures the default tool set.
type Options struct {
	SearchURL          string
	SemanticScholarURL string
	Timeout            time.Duration
	Client             *http.Client
}

// Default returns WebSearch, CitationLookup and TrendCheck.
func Default(opts Options) *Set {
	search := NewWebSearch(opts.SearchURL, opts.Client, opts.Timeout)
	return NewSet(
		search,
		NewCitationLookup(opts.SemanticScholarURL, opts.Client, opts.Timeout),
		NewTrendCheck(search),
	)
}

func httpClient(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
