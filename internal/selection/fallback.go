package selection

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

const fallbackSource = "AIDigest Editors"

const fallbackSummary = "%s is worth revisiting this week. This editor's pick walks through the core idea, " +
	"where it shows up in practice today, and what recent developments mean for readers following %s."

// FallbackBank is a rotation of topic sets per category.
var FallbackBank = map[article.Category][][]string{
	article.Research: {
		{"How attention mechanisms scale", "Mixture-of-experts routing in practice", "What scaling laws do and do not predict"},
		{"Retrieval-augmented generation, revisited", "Parameter-efficient fine-tuning with LoRA", "Why evaluation benchmarks saturate"},
		{"State space models as an alternative to transformers", "Distillation for smaller language models", "Reinforcement learning from human feedback"},
	},
	article.Business: {
		{"The economics of inference costs", "Open-weight models and the enterprise", "Where AI startups find defensibility"},
		{"Compute supply and the GPU market", "Pricing models for AI products", "Build versus buy for foundation models"},
		{"AI adoption in regulated industries", "Platform partnerships between labs and clouds", "Measuring ROI on AI deployments"},
	},
	article.Ethics: {
		{"What the EU AI Act requires", "Auditing models for bias", "Copyright and training data"},
		{"Transparency reports from AI labs", "Deepfakes and election integrity", "Privacy risks of personal assistants"},
		{"AI and the future of work", "Safety evaluations before deployment", "Who is accountable when models fail"},
	},
	article.DataScience: {
		{"Designing trustworthy A/B tests", "Feature stores and data freshness", "Practical causal inference"},
		{"Time series forecasting that holds up", "Data quality checks in pipelines", "Choosing the right chart"},
		{"SQL window functions for analysts", "Bayesian thinking for product metrics", "From notebook to production pipeline"},
	},
}

var genericBank = [][]string{
	{"The state of open models", "How teams evaluate language models", "Where AI is heading next"},
}

// Fallbacks synthesizes n articles for category from the topic set chosen
// by day of year. Output is deterministic for a given day.
func Fallbacks(category article.Category, day time.Time, n int, score float64) []*article.Article {
	if n <= 0 {
		return nil
	}
	bank, ok := FallbackBank[category]
	if !ok || len(bank) == 0 {
		bank = genericBank
	}

	yd := day.YearDay()
	start := yd % len(bank)
	slug := Slug(string(category))
	published := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

	var topics []string
	for i := 0; len(topics) < n && i < len(bank); i++ {
		topics = append(topics, bank[(start+i)%len(bank)]...)
	}
	for base := len(topics); len(topics) < n; {
		topics = append(topics, topics[len(topics)%base])
	}

	out := make([]*article.Article, n)
	for i := 0; i < n; i++ {
		out[i] = &article.Article{
			Link:      fmt.Sprintf("%s/%s/%d/%d", article.FallbackBaseURL, slug, yd, i+1),
			Title:     topics[i],
			Summary:   fmt.Sprintf(fallbackSummary, topics[i], category),
			Source:    fallbackSource,
			Published: published,
			Category:  category,
			Metrics: &article.Metrics{
				Novelty:      score,
				Practical:    score,
				Significance: score,
				FinalScore:   score,
			},
		}
	}
	return out
}

// Slug lowercases s and joins its alphanumeric runs with hyphens.
func Slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
