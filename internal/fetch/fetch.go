package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "AIDigest/1.0 (news digest)"

	// minTextLength is the shortest extraction treated as article text.
	minTextLength = 100
)

// ContentFetcher downloads article pages and extracts their readable text.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher returns a fetcher whose requests give up after timeout.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &ContentFetcher{client: &http.Client{Timeout: timeout}}
}

// FullText returns the readable body of a's page, or "" when it cannot be
// extracted. arXiv links are skipped; their abstract is the summary.
func (f *ContentFetcher) FullText(ctx context.Context, a *article.Article) string {
	if a.IsArxiv() || a.IsFallback() {
		return ""
	}

	text, err := f.extract(ctx, a.Link)
	if err != nil {
		log.Debug().Err(err).Str("url", a.Link).Msg("full text fetch failed")
		return ""
	}
	return text
}

// maxPageBytes bounds how much of a page is read before extraction.
const maxPageBytes = 4 << 20

func (f *ContentFetcher) extract(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", pageURL, err)
	}

	text := strings.Join(strings.Fields(doc.TextContent), " ")
	if len(text) <= minTextLength {
		return "", nil
	}
	return text, nil
}
