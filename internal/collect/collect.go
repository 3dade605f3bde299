package collect

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/config"
)

// Result holds the results of a collection run.
type Result struct {
	Articles []*article.Article
	Sources  map[string]int
}

// Collector orchestrates article collection from arXiv, RSS feeds and
// Hacker News.
type Collector struct {
	feedParser *FeedParser
	arxiv      *ArxivClient
	hackerNews *HackerNewsClient
	daysBack   int
	arxivDays  int
	now        func() time.Time
}

// NewCollector creates a collector from the sources config. daysBack
// overrides sources.days_back when positive.
func NewCollector(cfg config.Sources, daysBack int, client *http.Client) *Collector {
	if daysBack <= 0 {
		daysBack = cfg.DaysBack
	}
	if daysBack <= 0 {
		daysBack = 1
	}
	c := &Collector{daysBack: daysBack, arxivDays: cfg.Arxiv.DaysBack, now: time.Now}
	if c.arxivDays < daysBack {
		c.arxivDays = daysBack
	}

	if len(cfg.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Feeds))
		for i, f := range cfg.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds, client)
	}
	if cfg.Arxiv.Enabled {
		c.arxiv = NewArxivClient(cfg.Arxiv.URL, cfg.Arxiv.Query, cfg.Arxiv.MaxResults, client)
	}
	if cfg.HackerNews.Enabled {
		c.hackerNews = NewHackerNewsClient(cfg.HackerNews.URL, cfg.HackerNews.TopStories, cfg.HackerNews.Keywords, client)
	}
	return c
}

// Collect gathers candidates from every enabled source. A failing source
// is logged and skipped; the rest still contribute.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{Sources: make(map[string]int)}
	now := c.now().UTC()

	add := func(articles []*article.Article) {
		for _, a := range articles {
			r.Sources[a.Source]++
		}
		r.Articles = append(r.Articles, articles...)
	}

	if c.arxiv != nil {
		papers, err := c.arxiv.Fetch(ctx, now.AddDate(0, 0, -c.arxivDays))
		if err != nil {
			log.Warn().Err(err).Msg("arXiv collection failed")
		}
		add(papers)
	}

	if c.feedParser != nil {
		add(c.feedParser.ParseAll(ctx, now.AddDate(0, 0, -c.daysBack)))
	}

	if c.hackerNews != nil {
		stories, err := c.hackerNews.Fetch(ctx, now.AddDate(0, 0, -c.daysBack))
		if err != nil {
			log.Warn().Err(err).Msg("Hacker News collection failed")
		}
		add(stories)
	}

	log.Info().Int("found", len(r.Articles)).Int("sources", len(r.Sources)).Msg("collection complete")
	return r
}
