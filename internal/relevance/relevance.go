package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
)

const gatePrompt = `You are a strict editor for the "%s" section of an AI newsletter.

Decide whether the article below belongs in this section. Be strict: when in doubt, answer NO.

The section covers: %s

Examples that belong (YES):
%s

Examples that do not belong (NO):
%s

Article Title: %s
Source: %s
Summary: %s

Answer with exactly one word: YES or NO.`

// Examples are few-shot titles for one category.
type Examples struct {
	Scope    string
	Positive []string
	Negative []string
}

// DefaultExamples holds the few-shot examples per category.
var DefaultExamples = map[article.Category]Examples{
	article.Research: {
		Scope: "new models, training methods, benchmarks, papers and technical deep dives into how AI systems work",
		Positive: []string{
			"A new attention variant cuts transformer memory use by 40%",
			"Benchmark study: how well do LLMs reason about code?",
			"Anthropic publishes interpretability research on feature circuits",
		},
		Negative: []string{
			"AI startup raises $200M Series C",
			"10 ChatGPT prompts to boost your productivity",
			"Senators propose new AI safety bill",
		},
	},
	article.Business: {
		Scope: "funding, acquisitions, product launches, partnerships and market moves of AI companies",
		Positive: []string{
			"Mistral raises €600M at a $6B valuation",
			"Microsoft and OpenAI renegotiate their partnership",
			"Nvidia reports record data center revenue",
		},
		Negative: []string{
			"We propose a sparse mixture-of-experts routing scheme",
			"How to fine-tune Llama on your laptop",
			"Opinion: AI art is not art",
		},
	},
	article.Ethics: {
		Scope: "regulation, policy, law, bias, safety, privacy and the societal impact of AI",
		Positive: []string{
			"EU AI Act obligations for general purpose models take effect",
			"Study finds hiring algorithms penalize older applicants",
			"Authors sue AI lab over training on pirated books",
		},
		Negative: []string{
			"Google releases Gemini 2 with longer context",
			"Startup raises seed round for AI note taking",
			"A tutorial on LoRA fine-tuning",
		},
	},
	article.DataScience: {
		Scope: "data analysis, statistics, visualization, data engineering and analytics tooling",
		Positive: []string{
			"Polars vs pandas: a practical benchmark on 100GB",
			"Designing A/B tests that survive novelty effects",
			"Building a dbt pipeline for product analytics",
		},
		Negative: []string{
			"OpenAI announces GPT-5",
			"AI regulation debate heats up in Congress",
			"Robotics startup raises $50M",
		},
	},
}

// Gate is a binary, fail-closed relevance filter.
type Gate struct {
	provider llm.Provider
	examples map[article.Category]Examples
}

// New creates a gate with the default examples. A nil provider rejects
// everything.
func New(provider llm.Provider) *Gate {
	return &Gate{provider: provider, examples: DefaultExamples}
}

// IsRelevant reports whether a belongs to target. Any failure rejects.
func (g *Gate) IsRelevant(ctx context.Context, a *article.Article, target article.Category) bool {
	if g.provider == nil {
		return false
	}

	resp, err := g.provider.Generate(ctx, g.prompt(a, target), 5)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("relevance call failed, rejecting")
		return false
	}

	ok := IsYes(resp)
	log.Debug().Str("title", a.Title).Bool("relevant", ok).Str("answer", strings.TrimSpace(resp)).Msg("relevance gate")
	return ok
}

func (g *Gate) prompt(a *article.Article, target article.Category) string {
	ex, ok := g.examples[target]
	if !ok {
		ex = Examples{Scope: string(target)}
	}
	source := a.Source
	if source == "" {
		source = "Unknown"
	}
	return fmt.Sprintf(gatePrompt, target, ex.Scope,
		bullets(ex.Positive), bullets(ex.Negative),
		a.Title, source, article.Truncate(a.Summary, 500))
}

// IsYes reports whether resp is exactly YES once trimmed, uppercased and
// stripped of trailing punctuation.
func IsYes(resp string) bool {
	s := strings.ToUpper(strings.TrimSpace(resp))
	s = strings.TrimRight(s, ".!?,;:")
	return s == "YES"
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(it)
	}
	return sb.String()
}
