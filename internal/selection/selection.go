package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/categorize"
	"github.com/TobiSchelling/AIDigest/internal/memory"
	"github.com/TobiSchelling/AIDigest/internal/relevance"
	"github.com/TobiSchelling/AIDigest/internal/scoring"
	"github.com/TobiSchelling/AIDigest/internal/veto"
)

// Categorizer assigns one label per article.
type Categorizer interface {
	Categorize(ctx context.Context, a *article.Article) article.Category
}

// Deduplicator checks articles against what was already sent.
type Deduplicator interface {
	Enabled() bool
	IsDuplicate(ctx context.Context, a *article.Article) (bool, string)
}

// RelevanceGate is the binary relevance filter.
type RelevanceGate interface {
	IsRelevant(ctx context.Context, a *article.Article, target article.Category) bool
}

// Scorer writes a.Metrics and returns the final score.
type Scorer interface {
	Score(ctx context.Context, a *article.Article, target article.Category) float64
}

// Vetoer is the final waste-of-time check.
type Vetoer interface {
	ShouldReject(ctx context.Context, a *article.Article, target article.Category) bool
}

var (
	_ Categorizer   = (*categorize.Categorizer)(nil)
	_ Deduplicator  = (*memory.Memory)(nil)
	_ RelevanceGate = (*relevance.Gate)(nil)
	_ Scorer        = (*scoring.Scorer)(nil)
	_ Scorer        = (*scoring.Reasoner)(nil)
	_ Vetoer        = (*veto.Filter)(nil)
)

// Stage names the step where a run ran out of articles.
type Stage string

const (
	StageNone       Stage = ""
	StageCategorize Stage = "categorize"
	StageDedup      Stage = "dedup"
	StageRelevance  Stage = "relevance"
	StageScoring    Stage = "scoring"
)

// Policy holds the count and quality bounds.
type Policy struct {
	ArticlesPerCategory int
	MinArticles         int
	MinQuality          float64
	VetoMultiplier      int
}

// DefaultPolicy returns N=5, minimum 3, quality 6.0 and veto over 2N.
func DefaultPolicy() Policy {
	return Policy{ArticlesPerCategory: 5, MinArticles: 3, MinQuality: 6.0, VetoMultiplier: 2}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ArticlesPerCategory <= 0 {
		p.ArticlesPerCategory = d.ArticlesPerCategory
	}
	if p.MinArticles < 0 {
		p.MinArticles = 0
	}
	if p.MinArticles > p.ArticlesPerCategory {
		p.MinArticles = p.ArticlesPerCategory
	}
	if p.VetoMultiplier <= 0 {
		p.VetoMultiplier = d.VetoMultiplier
	}
	return p
}

// Deps wires the stage implementations. Memory and Veto may be nil.
type Deps struct {
	Categorizer Categorizer
	Memory      Deduplicator
	Relevance   RelevanceGate
	Scorer      Scorer
	Veto        Vetoer
}

// Counts records how many articles survived each stage.
type Counts struct {
	Fetched     int `json:"fetched"`
	Categorized int `json:"categorized"`
	Unique      int `json:"unique"`
	Relevant    int `json:"relevant"`
	Scored      int `json:"scored"`
	Vetoed      int `json:"vetoed"`
	Selected    int `json:"selected"`
	Fallbacks   int `json:"fallbacks"`
}

// Result is the outcome of one selection run. Empty is set when a stage
// left nothing to pass on; Articles is then nil.
type Result struct {
	Category article.Category
	Articles []*article.Article
	Empty    Stage
	Reason   string
	Counts   Counts
}

// IsEmpty reports whether the run stopped early.
func (r *Result) IsEmpty() bool {
	return r.Empty != StageNone
}

// Bucket returns the selection keyed by category.
func (r *Result) Bucket() article.Bucket {
	b := article.Bucket{}
	if len(r.Articles) > 0 {
		b[r.Category] = r.Articles
	}
	return b
}

// Selector runs the staged filtering for one category.
type Selector struct {
	categorizer Categorizer
	memory      Deduplicator
	relevance   RelevanceGate
	scorer      Scorer
	veto        Vetoer
	policy      Policy
}

// New creates a selector. Categorizer, Relevance and Scorer are required.
func New(deps Deps, policy Policy) *Selector {
	return &Selector{
		categorizer: deps.Categorizer,
		memory:      deps.Memory,
		relevance:   deps.Relevance,
		scorer:      deps.Scorer,
		veto:        deps.Veto,
		policy:      policy.withDefaults(),
	}
}

// Policy returns the effective policy.
func (s *Selector) Policy() Policy {
	return s.policy
}

// Select filters, scores and ranks articles for target. day seeds the
// fallback rotation.
func (s *Selector) Select(ctx context.Context, articles []*article.Article, target article.Category, day time.Time) *Result {
	res := &Result{Category: target}
	res.Counts.Fetched = len(articles)

	candidates := s.categorizeStage(ctx, article.Dedupe(articles), target)
	res.Counts.Categorized = len(candidates)
	if len(candidates) == 0 {
		return res.stop(StageCategorize, fmt.Sprintf("no articles categorized as %s", target))
	}

	candidates = s.dedupStage(ctx, candidates)
	res.Counts.Unique = len(candidates)
	if len(candidates) == 0 {
		return res.stop(StageDedup, fmt.Sprintf("all %d articles were already sent", res.Counts.Categorized))
	}

	candidates = s.relevanceStage(ctx, candidates, target)
	res.Counts.Relevant = len(candidates)
	if len(candidates) == 0 {
		return res.stop(StageRelevance, "no articles passed the relevance gate")
	}

	candidates = s.scoringStage(ctx, candidates, target)
	res.Counts.Scored = len(candidates)
	if len(candidates) == 0 {
		return res.stop(StageScoring, fmt.Sprintf("no articles scored at least %.1f", s.policy.MinQuality))
	}

	article.Rank(candidates)
	survivors, vetoed := s.vetoStage(ctx, candidates, target)
	res.Counts.Vetoed = vetoed

	if len(survivors) > s.policy.ArticlesPerCategory {
		survivors = survivors[:s.policy.ArticlesPerCategory]
	}
	res.Counts.Selected = len(survivors)

	if need := s.policy.MinArticles - len(survivors); need > 0 {
		fill := Fallbacks(target, day, need, s.policy.MinQuality)
		res.Counts.Fallbacks = len(fill)
		survivors = append(survivors, fill...)
		log.Info().Str("category", string(target)).Int("fallbacks", len(fill)).Msg("filled selection with fallback articles")
	}

	res.Articles = survivors
	log.Info().Str("category", string(target)).
		Int("fetched", res.Counts.Fetched).Int("categorized", res.Counts.Categorized).
		Int("unique", res.Counts.Unique).Int("relevant", res.Counts.Relevant).
		Int("scored", res.Counts.Scored).Int("vetoed", res.Counts.Vetoed).
		Int("selected", res.Counts.Selected).Int("fallbacks", res.Counts.Fallbacks).
		Msg("selection complete")
	return res
}

func (r *Result) stop(stage Stage, reason string) *Result {
	r.Empty = stage
	r.Reason = reason
	log.Info().Str("category", string(r.Category)).Str("stage", string(stage)).Msg(reason)
	return r
}

func (s *Selector) categorizeStage(ctx context.Context, articles []*article.Article, target article.Category) []*article.Article {
	var out []*article.Article
	for _, a := range articles {
		c := s.categorizer.Categorize(ctx, a)
		if c != target {
			continue
		}
		a.Category = c
		out = append(out, a)
	}
	return out
}

func (s *Selector) dedupStage(ctx context.Context, articles []*article.Article) []*article.Article {
	if s.memory == nil || !s.memory.Enabled() {
		return articles
	}
	var out []*article.Article
	for _, a := range articles {
		if dup, reason := s.memory.IsDuplicate(ctx, a); dup {
			log.Debug().Str("title", a.Title).Str("reason", reason).Msg("dropped duplicate")
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Selector) relevanceStage(ctx context.Context, articles []*article.Article, target article.Category) []*article.Article {
	var out []*article.Article
	for _, a := range articles {
		if s.relevance.IsRelevant(ctx, a, target) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Selector) scoringStage(ctx context.Context, articles []*article.Article, target article.Category) []*article.Article {
	var out []*article.Article
	for _, a := range articles {
		if score := s.scorer.Score(ctx, a, target); score >= s.policy.MinQuality {
			out = append(out, a)
			continue
		}
		log.Debug().Str("title", a.Title).Float64("score", a.FinalScore()).Msg("below quality threshold")
	}
	return out
}

// vetoStage checks only the top VetoMultiplier*N ranked articles. Vetoed
// articles are dropped; nothing below the slice moves up.
func (s *Selector) vetoStage(ctx context.Context, ranked []*article.Article, target article.Category) ([]*article.Article, int) {
	limit := s.policy.VetoMultiplier * s.policy.ArticlesPerCategory
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if s.veto == nil {
		return ranked, 0
	}

	out := make([]*article.Article, 0, len(ranked))
	vetoed := 0
	for _, a := range ranked {
		if s.veto.ShouldReject(ctx, a, target) {
			vetoed++
			log.Debug().Str("title", a.Title).Msg("vetoed")
			continue
		}
		out = append(out, a)
	}
	return out, vetoed
}
