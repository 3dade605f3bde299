package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const semanticScholarURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// Paper is the subset of a Semantic Scholar search hit we use.
type Paper struct {
	Title         string `json:"title"`
	Year          int    `json:"year"`
	CitationCount int    `json:"citationCount"`
}

// CitationLookup queries Semantic Scholar's paper search.
type CitationLookup struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewCitationLookup creates the tool. An empty baseURL means the public API.
func NewCitationLookup(baseURL string, client *http.Client, timeout time.Duration) *CitationLookup {
	if baseURL == "" {
		baseURL = semanticScholarURL
	}
	return &CitationLookup{baseURL: baseURL, client: httpClient(client, timeout), timeout: timeout}
}

func (c *CitationLookup) Name() string { return "CitationLookup" }

func (c *CitationLookup) Description() string {
	return "Look up citation count for academic papers. " +
		"Input should be a paper title or arXiv ID. Returns citation count and basic paper info."
}

func (c *CitationLookup) Run(ctx context.Context, query string) string {
	paper, err := c.Lookup(ctx, query)
	if err != nil {
		return fmt.Sprintf("Citation lookup failed: %v", err)
	}
	if paper == nil {
		return "No paper found with that title"
	}
	year := "N/A"
	if paper.Year > 0 {
		year = fmt.Sprint(paper.Year)
	}
	return fmt.Sprintf("Found paper: '%s' (%s)\nCitations: %d", paper.Title, year, paper.CitationCount)
}

// CitationCount returns the citation count of the best match for title.
func (c *CitationLookup) CitationCount(ctx context.Context, title string) (int, error) {
	paper, err := c.Lookup(ctx, title)
	if err != nil {
		return 0, err
	}
	if paper == nil {
		return 0, fmt.Errorf("no paper found for %q", title)
	}
	return paper.CitationCount, nil
}

// Lookup returns the top search hit, or nil when there is none.
func (c *CitationLookup) Lookup(ctx context.Context, query string) (*Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"query":  {query},
		"limit":  {"1"},
		"fields": {"citationCount,title,year"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned %d", resp.StatusCode)
	}

	var result struct {
		Data []Paper `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	return &result.Data[0], nil
}
