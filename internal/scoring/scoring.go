package scoring

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
)

const (
	NeutralScore = 5.0
	MaxScore     = 10.0

	noveltyWeight      = 0.4
	practicalWeight    = 0.3
	significanceWeight = 0.3

	summaryLimit = 500
)

const scorePrompt = `You are scoring articles for the "%s" section of a technical AI newsletter.

Rate the article below from 0 to 10 on three dimensions:
- Novelty: is this new information or rehashed content?
- Practical: can readers use this right away?
- Significance: will this still matter in six months?

Title: %s
Summary: %s
Source: %s%s

Respond with ONLY three comma-separated numbers in this order: novelty, practical, significance.
Example: 7, 5, 8`

var triplePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)`)

// CitationCounter looks up how often a paper has been cited.
type CitationCounter interface {
	CitationCount(ctx context.Context, title string) (int, error)
}

// Scorer rates articles on novelty, practical value and significance.
type Scorer struct {
	provider  llm.Provider
	citations CitationCounter
}

// NewScorer creates a scorer. citations may be nil.
func NewScorer(provider llm.Provider, citations CitationCounter) *Scorer {
	return &Scorer{provider: provider, citations: citations}
}

// Score writes a.Metrics and returns the final score. Any failure yields the
// neutral score on every dimension.
func (s *Scorer) Score(ctx context.Context, a *article.Article, target article.Category) float64 {
	var citations *int
	if s.citations != nil && a.IsArxiv() {
		if n, err := s.citations.CitationCount(ctx, a.Title); err == nil {
			citations = &n
		} else {
			log.Debug().Err(err).Str("title", a.Title).Msg("citation count unavailable")
		}
	}

	m := s.rate(ctx, a, target, citations)
	m.Citations = citations
	a.Metrics = m
	log.Debug().Str("title", a.Title).
		Float64("novelty", m.Novelty).Float64("practical", m.Practical).Float64("significance", m.Significance).
		Float64("final", m.FinalScore).Msg("scored")
	return m.FinalScore
}

func (s *Scorer) rate(ctx context.Context, a *article.Article, target article.Category, citations *int) *article.Metrics {
	if s.provider == nil {
		return NewMetrics(NeutralScore, NeutralScore, NeutralScore)
	}

	extra := ""
	if citations != nil {
		extra = fmt.Sprintf("\nCitations: %d", *citations)
	}
	source := a.Source
	if source == "" {
		source = "Unknown"
	}
	prompt := fmt.Sprintf(scorePrompt, target, a.Title, article.Truncate(a.Summary, summaryLimit), source, extra)

	resp, err := s.provider.Generate(ctx, prompt, 20)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("score call failed, using neutral score")
		return NewMetrics(NeutralScore, NeutralScore, NeutralScore)
	}

	n, p, sig, ok := ParseTriple(resp)
	if !ok {
		log.Warn().Str("title", a.Title).Str("response", resp).Msg("unparseable score, using neutral score")
		return NewMetrics(NeutralScore, NeutralScore, NeutralScore)
	}
	return NewMetrics(n, p, sig)
}

// ParseTriple extracts three comma-separated numbers, each clamped to [0,10].
func ParseTriple(resp string) (novelty, practical, significance float64, ok bool) {
	m := triplePattern.FindStringSubmatch(resp)
	if m == nil {
		return 0, 0, 0, false
	}
	vals := make([]float64, 3)
	for i := range vals {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = Clamp(v)
	}
	return vals[0], vals[1], vals[2], true
}

// NewMetrics builds metrics with the weighted final score.
func NewMetrics(novelty, practical, significance float64) *article.Metrics {
	return &article.Metrics{
		Novelty:      novelty,
		Practical:    practical,
		Significance: significance,
		FinalScore:   Weighted(novelty, practical, significance),
	}
}

// Weighted combines the sub-scores as 0.4n + 0.3p + 0.3s, rounded to two
// decimals so equal inputs compare equal.
func Weighted(novelty, practical, significance float64) float64 {
	v := noveltyWeight*novelty + practicalWeight*practical + significanceWeight*significance
	return math.Round(v*100) / 100
}

// Clamp bounds v to [0,10].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > MaxScore:
		return MaxScore
	}
	return v
}
