package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
)

// minSummaryLen is the shortest summary worth a model call.
const minSummaryLen = 20

const categorizePrompt = `You are an expert editor for an AI newsletter. Assign the article below to exactly one of these categories: %s.

Respond with only the category name and nothing else.

Title: %s
Summary: %s`

// Rule maps a match on the lowercased title and summary to a label.
type Rule struct {
	Name  string
	Label article.Category
	Match func(title, summary string) bool
}

var irrelevantTopics = []string{
	"crypto", "bitcoin", "ethereum", "blockchain", "nft", "memecoin",
	"sports", "football", "soccer", "nba", "nfl", "celebrity", "horoscope",
	"recipe", "giveaway", "coupon", "promo code", "black friday", "deal of the day",
	"gaming console", "box office",
}

var researchTitle = []string{
	"paper", "arxiv", "benchmark", "transformer", "diffusion", "attention",
	"fine-tuning", "fine tuning", "reinforcement learning", "neural network",
	"pretraining", "pre-training", "embedding", "quantization", "distillation",
	"reasoning", "state space model", "mixture of experts", "llm", "language model",
}

var abstractPhrases = []string{
	"we propose", "in this paper", "we present", "we introduce", "our method",
	"our approach", "we show that", "experiments show",
}

var ethicsTitle = []string{
	"ethics", "ethical", "regulation", "regulator", "policy", "ai act", "law",
	"lawsuit", "copyright", "privacy", "bias", "fairness", "safety", "deepfake",
	"misinformation", "surveillance", "governance", "senate", "congress", "ban",
	"court", "rights", "accountability",
}

var businessTitle = []string{
	"funding", "raises", "raised", "acquisition", "acquires", "acquired", "startup",
	"valuation", "ipo", "revenue", "earnings", "partnership", "partners with",
	"investment", "investors", "launches", "enterprise", "market", "ceo", "layoffs",
	"billion", "million", "deal",
}

var dataScienceTitle = []string{
	"data science", "data scientist", "analytics", "pandas", "sql", "visualization",
	"dashboard", "statistics", "statistical", "data engineering", "etl", "kaggle",
	"a/b test", "forecasting", "time series", "data pipeline", "dataframe", "jupyter",
}

// DefaultRules is the ordered rule chain. The irrelevant list is first so
// off-topic items never reach a positive label. Research vocabulary ("llm",
// "language model") shows up in policy and funding headlines too, so it is
// checked after the ethics, business and data science lists.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "irrelevant-topics", Label: article.Irrelevant, Match: titleHasAny(irrelevantTopics)},
		{Name: "ethics-title", Label: article.Ethics, Match: titleHasAny(ethicsTitle)},
		{Name: "business-title", Label: article.Business, Match: titleHasAny(businessTitle)},
		{Name: "data-science-title", Label: article.DataScience, Match: titleHasAny(dataScienceTitle)},
		{Name: "research-title", Label: article.Research, Match: titleHasAny(researchTitle)},
		{Name: "research-abstract", Label: article.Research, Match: func(_, summary string) bool {
			return containsAny(summary, abstractPhrases)
		}},
	}
}

// Categorizer assigns an article to one label, by rule when possible and by
// model otherwise.
type Categorizer struct {
	provider llm.Provider
	rules    []Rule
}

// New creates a categorizer with the default rule chain. provider may be
// nil, in which case unmatched articles are Irrelevant.
func New(provider llm.Provider) *Categorizer {
	return &Categorizer{provider: provider, rules: DefaultRules()}
}

// NewWithRules creates a categorizer with a custom rule chain.
func NewWithRules(provider llm.Provider, rules []Rule) *Categorizer {
	return &Categorizer{provider: provider, rules: rules}
}

// Categorize returns the label for a. Rule matches are deterministic; the
// model path may vary between calls.
func (c *Categorizer) Categorize(ctx context.Context, a *article.Article) article.Category {
	title := strings.ToLower(a.Title)
	summary := strings.ToLower(a.Summary)

	for _, r := range c.rules {
		if r.Match(title, summary) {
			log.Debug().Str("title", a.Title).Str("rule", r.Name).Str("category", string(r.Label)).Msg("categorized by rule")
			return r.Label
		}
	}

	if len(strings.TrimSpace(a.Summary)) < minSummaryLen {
		return article.Irrelevant
	}
	if c.provider == nil {
		return article.Irrelevant
	}

	return c.categorizeWithModel(ctx, a)
}

func (c *Categorizer) categorizeWithModel(ctx context.Context, a *article.Article) article.Category {
	labels := make([]string, len(article.Categories))
	for i, cat := range article.Categories {
		labels[i] = string(cat)
	}
	prompt := fmt.Sprintf(categorizePrompt, strings.Join(labels, ", "), a.Title, article.Truncate(a.Summary, 1000))

	resp, err := c.provider.Generate(ctx, prompt, 30)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("categorize call failed")
		return article.Irrelevant
	}

	cat := MatchLabel(resp)
	log.Debug().Str("title", a.Title).Str("category", string(cat)).Msg("categorized by model")
	return cat
}

// MatchLabel returns the first label, in fixed order, contained in resp.
func MatchLabel(resp string) article.Category {
	lower := strings.ToLower(resp)
	for _, cat := range article.Categories {
		if strings.Contains(lower, strings.ToLower(string(cat))) {
			return cat
		}
	}
	return article.Irrelevant
}

func titleHasAny(keywords []string) func(title, summary string) bool {
	return func(title, _ string) bool {
		return containsAny(title, keywords)
	}
}

// containsAny matches keywords, or their plural, on word boundaries so
// "law" does not hit "lawmaker".
func containsAny(text string, keywords []string) bool {
	padded := " " + normalize(text) + " "
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") || strings.Contains(padded, " "+kw+"s ") {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '/', r > 127:
			return false
		}
		return true
	})
	return strings.Join(fields, " ")
}
