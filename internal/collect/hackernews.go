package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

const (
	DefaultHackerNewsURL = "https://hacker-news.firebaseio.com/v0"
	hnItemConcurrency    = 8
)

type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
}

// HackerNewsClient reads top stories from the Firebase API.
type HackerNewsClient struct {
	baseURL    string
	topStories int
	keywords   []string
	client     *http.Client
}

// NewHackerNewsClient creates a client that scans the first topStories
// stories and keeps those whose title mentions a keyword.
func NewHackerNewsClient(baseURL string, topStories int, keywords []string, client *http.Client) *HackerNewsClient {
	if baseURL == "" {
		baseURL = DefaultHackerNewsURL
	}
	if topStories <= 0 {
		topStories = 150
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HackerNewsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		topStories: topStories,
		keywords:   keywords,
		client:     client,
	}
}

// Fetch returns matching stories posted after cutoff in top-story order.
// Individual item failures are skipped.
func (c *HackerNewsClient) Fetch(ctx context.Context, cutoff time.Time) ([]*article.Article, error) {
	var ids []int
	if err := c.getJSON(ctx, c.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("hacker news top stories: %w", err)
	}
	if len(ids) > c.topStories {
		ids = ids[:c.topStories]
	}

	items := make([]*hnItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hnItemConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var item hnItem
			if err := c.getJSON(gctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &item); err != nil {
				log.Debug().Err(err).Int("id", id).Msg("skipping hacker news item")
				return nil
			}
			items[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	var stories []*article.Article
	for _, item := range items {
		if item == nil || item.Time == 0 || item.Title == "" {
			continue
		}
		posted := time.Unix(item.Time, 0).UTC()
		if !posted.After(cutoff) || !MatchesKeywords(item.Title, c.keywords) {
			continue
		}
		link := item.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
		}
		stories = append(stories, &article.Article{
			Link:      link,
			Title:     item.Title,
			Summary:   stripHTML(item.Text),
			Source:    "Hacker News",
			Published: posted.Format(time.RFC3339),
		})
	}

	log.Info().Int("scanned", len(ids)).Int("stories", len(stories)).Msg("fetched Hacker News stories")
	return stories, nil
}

func (c *HackerNewsClient) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// MatchesKeywords reports whether title mentions any keyword. Single-word
// keywords must match a whole word so "ai" does not hit "said"; phrases
// match as substrings.
func MatchesKeywords(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}
