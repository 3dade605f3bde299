package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

const (
	DefaultArxivURL   = "http://export.arxiv.org/api/query"
	DefaultArxivQuery = "cat:cs.AI OR cat:cs.LG OR cat:cs.CL"
)

var arxivCategoryNames = map[string]string{
	"cs.AI": "Artificial Intelligence",
	"cs.LG": "Machine Learning",
	"cs.CL": "Computation & Language",
	"cs.CV": "Computer Vision",
	"cs.NE": "Neural Networks",
}

// ArxivClient queries the arXiv Atom API for recent submissions.
type ArxivClient struct {
	baseURL    string
	query      string
	maxResults int
	client     *http.Client
}

// NewArxivClient creates an arXiv client. Empty values take the defaults.
func NewArxivClient(baseURL, query string, maxResults int, client *http.Client) *ArxivClient {
	if baseURL == "" {
		baseURL = DefaultArxivURL
	}
	if query == "" {
		query = DefaultArxivQuery
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArxivClient{baseURL: baseURL, query: query, maxResults: maxResults, client: client}
}

// Fetch returns papers submitted after cutoff, newest first.
func (c *ArxivClient) Fetch(ctx context.Context, cutoff time.Time) ([]*article.Article, error) {
	params := url.Values{}
	params.Set("search_query", c.query)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", fmt.Sprintf("%d", c.maxResults))

	parser := gofeed.NewParser()
	parser.Client = c.client
	parser.UserAgent = userAgent
	feed, err := parser.ParseURLWithContext(c.baseURL+"?"+params.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}

	var papers []*article.Article
	for _, item := range feed.Items {
		if item.PublishedParsed == nil || !item.PublishedParsed.After(cutoff) {
			continue
		}
		link := strings.TrimSpace(item.GUID)
		if link == "" {
			link = strings.TrimSpace(item.Link)
		}
		title := strings.Join(strings.Fields(item.Title), " ")
		if link == "" || title == "" {
			continue
		}
		papers = append(papers, &article.Article{
			Link:      link,
			Title:     title,
			Summary:   strings.Join(strings.Fields(item.Description), " "),
			Source:    arxivSource(item),
			Published: item.PublishedParsed.UTC().Format(time.RFC3339),
		})
	}

	log.Info().Int("papers", len(papers)).Msg("fetched arXiv papers")
	return papers, nil
}

// arxivSource builds "arXiv: <category> • <Lastname> et al.".
func arxivSource(item *gofeed.Item) string {
	source := "arXiv"
	if term := primaryCategory(item); term != "" {
		name, ok := arxivCategoryNames[term]
		if !ok {
			name = term
		}
		source = "arXiv: " + name
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		parts := strings.Fields(item.Authors[0].Name)
		switch {
		case len(parts) > 1:
			source += " • " + parts[len(parts)-1] + " et al."
		case len(parts) == 1:
			source += " • " + parts[0]
		}
	}
	return source
}

// primaryCategory reads the arxiv:primary_category extension, falling back
// to the first Atom category.
func primaryCategory(item *gofeed.Item) string {
	for _, elems := range item.Extensions {
		for _, e := range elems["primary_category"] {
			if term := e.Attrs["term"]; term != "" {
				return term
			}
		}
	}
	if len(item.Categories) > 0 {
		return item.Categories[0]
	}
	return ""
}
