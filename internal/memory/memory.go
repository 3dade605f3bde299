package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
)

const (
	DefaultThreshold    = 0.85
	DefaultLookbackDays = 60
	DefaultNeighbors    = 5
	topicCoverageLimit  = 10
)

// Options tunes duplicate detection.
type Options struct {
	Threshold    float64
	LookbackDays int
	Neighbors    int
	Now          func() time.Time
}

// Memory answers whether an article repeats something already sent and
// records what gets sent. A disabled Memory never reports duplicates and
// stores nothing.
type Memory struct {
	store    Store
	embedder llm.Embedder
	opts     Options
	enabled  bool
}

// Stats describes the memory state for reporting.
type Stats struct {
	Enabled             bool    `json:"enabled"`
	TotalArticles       int     `json:"total_articles"`
	LookbackDays        int     `json:"lookback_days"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Error               string  `json:"error,omitempty"`
}

// TopicCount is a title keyword and how many sent articles contained it.
type TopicCount struct {
	Topic string
	Count int
}

// New returns an enabled Memory when both the embedder and the store are
// usable, and a disabled one otherwise.
func New(ctx context.Context, store Store, embedder llm.Embedder, opts Options) *Memory {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Neighbors <= 0 {
		opts.Neighbors = DefaultNeighbors
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Memory{store: store, embedder: embedder, opts: opts}

	if embedder == nil {
		log.Warn().Msg("no embedding backend configured; memory dedup disabled")
		return m
	}
	if c, ok := embedder.(interface{ IsConfigured() bool }); ok && !c.IsConfigured() {
		log.Warn().Msg("embedding backend not configured; memory dedup disabled")
		return m
	}
	if store == nil {
		log.Warn().Msg("no memory store; memory dedup disabled")
		return m
	}
	if _, err := store.Count(ctx); err != nil {
		log.Warn().Err(err).Msg("memory store unavailable; memory dedup disabled")
		return m
	}

	m.enabled = true
	return m
}

// Disabled returns a Memory that does nothing.
func Disabled() *Memory {
	return &Memory{opts: Options{Threshold: DefaultThreshold, LookbackDays: DefaultLookbackDays}}
}

// Enabled reports whether duplicate checks are active.
func (m *Memory) Enabled() bool {
	return m != nil && m.enabled
}

func documentText(a *article.Article) string {
	return strings.TrimSpace(a.Title + " " + a.Summary)
}

// IsDuplicate reports whether a is too similar to an article sent within
// the lookback window. The reason names the matched title and its age.
func (m *Memory) IsDuplicate(ctx context.Context, a *article.Article) (bool, string) {
	if !m.Enabled() {
		return false, ""
	}

	vec, err := llm.EmbedOne(ctx, m.embedder, documentText(a))
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("similarity check failed")
		return false, ""
	}

	now := m.opts.Now()
	since := now.AddDate(0, 0, -m.opts.LookbackDays)
	neighbors, err := m.store.Nearest(ctx, vec, since, m.opts.Neighbors)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("similarity check failed")
		return false, ""
	}

	for _, n := range neighbors {
		// Window is enforced here too; not every store filters exactly.
		if n.SentDate.Before(since) {
			continue
		}
		if n.Similarity > m.opts.Threshold {
			days := int(now.Sub(n.SentDate).Hours() / 24)
			return true, fmt.Sprintf("Too similar (%.1f%%) to '%s' sent %d days ago", n.Similarity*100, n.Title, days)
		}
	}
	return false, ""
}

// Store records a sent article. Failures are logged and dropped.
func (m *Memory) Store(ctx context.Context, a *article.Article, category article.Category, score float64) {
	if !m.Enabled() {
		return
	}

	vec, err := llm.EmbedOne(ctx, m.embedder, documentText(a))
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("failed to store article in memory")
		return
	}

	source := a.Source
	if source == "" {
		source = "Unknown"
	}
	rec := Record{
		ID:           uuid.NewString(),
		URL:          a.Link,
		Title:        a.Title,
		Category:     string(category),
		Source:       source,
		QualityScore: score,
		SentDate:     m.opts.Now(),
	}
	if err := m.store.Insert(ctx, rec, vec); err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("failed to store article in memory")
	}
}

// TopicCoverage counts title words longer than four characters across
// articles sent for category in the last days, most frequent first.
func (m *Memory) TopicCoverage(ctx context.Context, category article.Category, days int) []TopicCount {
	if !m.Enabled() {
		return nil
	}
	if days <= 0 {
		days = 30
	}

	records, err := m.store.ByCategory(ctx, string(category), m.opts.Now().AddDate(0, 0, -days))
	if err != nil {
		log.Warn().Err(err).Str("category", string(category)).Msg("failed to get topic coverage")
		return nil
	}

	counts := make(map[string]int)
	for _, r := range records {
		for _, word := range strings.Fields(strings.ToLower(r.Title)) {
			if len(word) > 4 {
				counts[word]++
			}
		}
	}

	topics := make([]TopicCount, 0, len(counts))
	for w, c := range counts {
		topics = append(topics, TopicCount{Topic: w, Count: c})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > topicCoverageLimit {
		topics = topics[:topicCoverageLimit]
	}
	return topics
}

// Stats reports the memory configuration and size.
func (m *Memory) Stats(ctx context.Context) Stats {
	if !m.Enabled() {
		return Stats{Enabled: false}
	}
	s := Stats{
		Enabled:             true,
		LookbackDays:        m.opts.LookbackDays,
		SimilarityThreshold: m.opts.Threshold,
	}
	n, err := m.store.Count(ctx)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.TotalArticles = n
	return s
}
