package article

import (
	"sort"
	"strings"
	"time"
)

// Category is a topical bucket an article is sorted into.
type Category string

const (
	Research    Category = "AI Research & Technical Deep Dives"
	Business    Category = "AI Business & Industry News"
	Ethics      Category = "AI Ethics, Policy & Society"
	DataScience Category = "Data Science & Analytics"
	Irrelevant  Category = "Irrelevant"
)

// Categories is the fixed label set in matching order. Irrelevant is last.
var Categories = []Category{Research, Business, Ethics, DataScience, Irrelevant}

// Known reports whether c is one of the fixed labels.
func Known(c Category) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Metrics holds the quality sub-scores written by the scorer.
type Metrics struct {
	Novelty      float64 `json:"novelty"`
	Practical    float64 `json:"practical"`
	Significance float64 `json:"significance"`
	FinalScore   float64 `json:"final_score"`
	Citations    *int    `json:"citations,omitempty"`
}

// Article is a candidate news item. Stages fill in annotations as it
// moves through the pipeline.
type Article struct {
	Link      string `json:"link"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Source    string `json:"source"`
	Published string `json:"published"`

	Category       Category `json:"category,omitempty"`
	Metrics        *Metrics `json:"metrics,omitempty"`
	WasteScore     *float64 `json:"waste_score,omitempty"`
	ReactReasoning string   `json:"react_reasoning,omitempty"`
}

// Key returns the normalized identity of the article.
func (a *Article) Key() string {
	return NormalizeLink(a.Link)
}

// FinalScore returns the scored value, or 0 when the article is unscored.
func (a *Article) FinalScore() float64 {
	if a.Metrics == nil {
		return 0
	}
	return a.Metrics.FinalScore
}

// PublishedTime parses Published. The zero time is returned when it
// cannot be parsed.
func (a *Article) PublishedTime() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, a.Published); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IsArxiv reports whether the article links to arXiv.
func (a *Article) IsArxiv() bool {
	return strings.Contains(strings.ToLower(a.Link), "arxiv.org")
}

// FallbackBaseURL prefixes the links of synthesized fallback articles.
const FallbackBaseURL = "https://aidigest.dev/fallback"

// IsFallback reports whether a was synthesized rather than collected.
func (a *Article) IsFallback() bool {
	return strings.HasPrefix(a.Link, FallbackBaseURL+"/")
}

// NormalizeLink lowercases and trims a link for comparison.
func NormalizeLink(link string) string {
	return strings.ToLower(strings.TrimSpace(link))
}

// Bucket maps a category to its ordered articles.
type Bucket map[Category][]*Article

// Less orders by final score descending, then publication time descending,
// then normalized link so the order is total.
func Less(a, b *Article) bool {
	if sa, sb := a.FinalScore(), b.FinalScore(); sa != sb {
		return sa > sb
	}
	ta, tb := a.PublishedTime(), b.PublishedTime()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	if a.Published != b.Published {
		return a.Published > b.Published
	}
	return a.Key() < b.Key()
}

// Rank sorts articles in place by Less.
func Rank(articles []*Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return Less(articles[i], articles[j])
	})
}

// Dedupe drops articles whose normalized link was already seen. The first
// occurrence wins.
func Dedupe(articles []*Article) []*Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]*Article, 0, len(articles))
	for _, a := range articles {
		k := a.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Truncate shortens s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
