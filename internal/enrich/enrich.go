package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
	"github.com/TobiSchelling/AIDigest/internal/refresher"
)

const contentLimit = 4000

const summaryPrompt = `You are a professional tech newsletter writer creating summaries for paying subscribers.

Write a direct, punchy summary that gets straight to the point. Focus on:
- What was developed, discovered or announced
- Key technical details and capabilities
- Practical implications and impact

Write in active voice. Start with the main finding or announcement, not "The article discusses" or "The paper presents".
Keep it 3-5 sentences. Respond with the summary only.

Article:
%s`

const jokePrompt = `You are a witty comedian who tells jokes about technology and AI. Write one short one-liner joke based on this article. Respond with the joke only.

Article Title: %s
Article Summary: %s`

// FullTexter fetches the readable body of an article page.
type FullTexter interface {
	FullText(ctx context.Context, a *article.Article) string
}

// Result holds the extras generated for one digest.
type Result struct {
	Summarized int
	Joke       string
	Refresher  *refresher.Refresher
}

// Enricher rewrites summaries and adds the joke and refresher of the day.
type Enricher struct {
	provider  llm.Provider
	fetcher   FullTexter
	refresher *refresher.Picker
}

// New creates an enricher. fetcher and picker may be nil.
func New(provider llm.Provider, fetcher FullTexter, picker *refresher.Picker) *Enricher {
	return &Enricher{provider: provider, fetcher: fetcher, refresher: picker}
}

// Enrich rewrites the summaries of articles in place and generates the
// joke and refresher for category. record controls whether the refresher
// is written to history.
func (e *Enricher) Enrich(ctx context.Context, articles []*article.Article, category article.Category, day time.Time, record bool) *Result {
	r := &Result{}
	for _, a := range articles {
		if e.Summarize(ctx, a) {
			r.Summarized++
		}
	}
	r.Joke = e.Joke(ctx, articles, day)
	if e.refresher != nil {
		r.Refresher = e.refresher.Pick(ctx, category, day, record)
	}

	log.Info().Int("summarized", r.Summarized).Int("articles", len(articles)).
		Bool("joke", r.Joke != "").Bool("refresher", r.Refresher != nil).Msg("enrichment complete")
	return r
}

// Summarize replaces a.Summary with a 3 to 5 sentence rewrite of the full
// text, or of the original summary when no text can be fetched. The
// original is kept on any failure.
func (e *Enricher) Summarize(ctx context.Context, a *article.Article) bool {
	if e.provider == nil || a.IsFallback() {
		return false
	}

	content := ""
	if e.fetcher != nil {
		content = e.fetcher.FullText(ctx, a)
	}
	if content == "" {
		content = a.Summary
	}
	if strings.TrimSpace(content) == "" {
		return false
	}

	input := fmt.Sprintf("%s\n\n%s", a.Title, article.Truncate(content, contentLimit))
	resp, err := e.provider.Generate(ctx, fmt.Sprintf(summaryPrompt, input), 300)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("summary rewrite failed, keeping original")
		return false
	}
	summary := strings.TrimSpace(resp)
	if summary == "" {
		return false
	}
	a.Summary = summary
	return true
}

// Joke writes a one-liner about the article chosen by day of year. Returns
// "" when there is nothing to joke about or the call fails.
func (e *Enricher) Joke(ctx context.Context, articles []*article.Article, day time.Time) string {
	if e.provider == nil || len(articles) == 0 {
		return ""
	}
	a := articles[day.YearDay()%len(articles)]
	resp, err := e.provider.Generate(ctx, fmt.Sprintf(jokePrompt, a.Title, article.Truncate(a.Summary, 500)), 100)
	if err != nil {
		log.Warn().Err(err).Msg("joke generation failed")
		return ""
	}
	return strings.Trim(strings.TrimSpace(resp), `"`)
}
