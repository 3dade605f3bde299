package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	duckDuckGoURL     = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	trendMaxResults   = 20
)

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// WebSearch scrapes the DuckDuckGo HTML endpoint.
type WebSearch struct {
	baseURL    string
	client     *http.Client
	timeout    time.Duration
	MaxResults int
}

// NewWebSearch creates a search tool. An empty baseURL means DuckDuckGo.
func NewWebSearch(baseURL string, client *http.Client, timeout time.Duration) *WebSearch {
	if baseURL == "" {
		baseURL = duckDuckGoURL
	}
	return &WebSearch{
		baseURL:    baseURL,
		client:     httpClient(client, timeout),
		timeout:    timeout,
		MaxResults: defaultMaxResults,
	}
}

func (w *WebSearch) Name() string { return "WebSearch" }

func (w *WebSearch) Description() string {
	return "Search the web for information about articles, topics, or claims. " +
		"Input should be a search query string. Returns top search results with snippets."
}

// Run returns the top results as text.
func (w *WebSearch) Run(ctx context.Context, query string) string {
	results, err := w.Search(ctx, query, w.MaxResults)
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err)
	}
	if len(results) == 0 {
		return "No results found"
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Search queries the endpoint and parses up to limit results.
func (w *WebSearch) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	ctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	u := w.baseURL + "?" + url.Values{"q": {query}, "kl": {"us-en"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}

	results := parseResults(doc, limit)
	log.Debug().Str("query", query).Int("results", len(results)).Msg("web search")
	return results, nil
}

func parseResults(doc *goquery.Document, limit int) []Result {
	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		results = append(results, Result{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
		})
		return limit <= 0 || len(results) < limit
	})
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// TrendCheck estimates recent coverage of a topic from search volume.
type TrendCheck struct {
	search *WebSearch
}

// NewTrendCheck builds a trend tool on top of search.
func NewTrendCheck(search *WebSearch) *TrendCheck {
	return &TrendCheck{search: search}
}

func (t *TrendCheck) Name() string { return "TrendCheck" }

func (t *TrendCheck) Description() string {
	return "Check if a topic is currently trending or getting recent coverage. " +
		"Input should be a topic name or keyword. Returns trend status."
}

func (t *TrendCheck) Run(ctx context.Context, topic string) string {
	topic = strings.TrimSpace(topic)
	results, err := t.search.Search(ctx, topic+" latest news", trendMaxResults)
	if err != nil {
		return fmt.Sprintf("Trend check failed: %v", err)
	}
	return ClassifyTrend(topic, len(results))
}

// ClassifyTrend turns a mention count into a trend statement.
func ClassifyTrend(topic string, mentions int) string {
	switch {
	case mentions > 10:
		return fmt.Sprintf("Topic '%s' appears to be trending (found %d recent mentions)", topic, mentions)
	case mentions > 5:
		return fmt.Sprintf("Topic '%s' has moderate recent coverage (%d mentions)", topic, mentions)
	default:
		return fmt.Sprintf("Topic '%s' has limited recent coverage", topic)
	}
}
