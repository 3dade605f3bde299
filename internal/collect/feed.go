package collect

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

const (
	maxPerFeed = 20
	userAgent  = "AIDigest/1.0 (news digest)"
)

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	client *http.Client
}

// NewFeedParser creates a new FeedParser. A nil client uses a 30s default.
func NewFeedParser(feeds []FeedConfig, client *http.Client) *FeedParser {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FeedParser{feeds: feeds, client: client}
}

// ParseAll parses all configured feeds and returns entries published after
// cutoff. A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, cutoff time.Time) []*article.Article {
	var all []*article.Article

	parser := gofeed.NewParser()
	parser.Client = fp.client
	parser.UserAgent = userAgent
	for _, fc := range fp.feeds {
		entries, name, err := parseFeed(ctx, parser, fc, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("feed", fc.URL).Msg("failed to parse feed")
			continue
		}
		all = append(all, entries...)
		log.Info().Str("source", name).Int("entries", len(entries)).Msg("parsed feed")
	}

	return all
}

func parseFeed(ctx context.Context, parser *gofeed.Parser, fc FeedConfig, cutoff time.Time) ([]*article.Article, string, error) {
	feed, err := parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, fc.URL, err
	}

	name := fc.Name
	if name == "" {
		name = strings.TrimSpace(feed.Title)
	}
	if name == "" {
		name = extractSourceName(fc.URL)
	}

	var entries []*article.Article
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}

		a := parseItem(item, name)
		if a == nil {
			continue
		}
		if isWithinWindow(a.PublishedTime(), cutoff) {
			entries = append(entries, a)
		}
	}

	return entries, name, nil
}

func parseItem(item *gofeed.Item, source string) *article.Article {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var published string
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	return &article.Article{
		Link:      strings.TrimSpace(itemURL),
		Title:     title,
		Summary:   stripHTML(summary),
		Source:    source,
		Published: published,
	}
}

// isWithinWindow gives undated entries the benefit of the doubt.
func isWithinWindow(published, cutoff time.Time) bool {
	if published.IsZero() {
		return true
	}
	return published.After(cutoff)
}

// stripHTML returns the text content of an HTML fragment with whitespace
// collapsed.
func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.Join(strings.Fields(text), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
