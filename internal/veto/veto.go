package veto

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
	"github.com/TobiSchelling/AIDigest/internal/scoring"
)

const DefaultThreshold = 5.0

const vetoPrompt = `You are the last editor before a "%s" newsletter goes out. Readers pay with their attention.

Rate from 0 to 10 how likely a reader is to feel cheated after clicking this article:
0 = clearly worth their time, 10 = a complete waste of time.

Worked examples:
- "OpenAI releases GPT-5 with a technical report and benchmarks" -> 1 (substantive, widely relevant)
- "10 AI tools that will change your life" -> 8 (listicle, no substance)
- "Startup X 'revolutionizes' AI with new platform" (press release, no details) -> 7
- "Paper: a new method beats the state of the art on ImageNet by 0.1%%" -> 5 (incremental)
- "Court rules on AI copyright case, with analysis of implications" -> 2

Title: %s
Source: %s
Summary: %s

Respond with ONLY this JSON:
{"waste_score": 0-10, "reason": "one short sentence"}`

var (
	// Group 2 catches a range like "0-10".
	labelledScore = regexp.MustCompile(`(?i)score"?\s*[:=]\s*(\d+(?:\.\d+)?)(\s*-\s*\d)?`)
	leadingScore  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)(\s*-\s*\d|\s+[a-zA-Z])?`)
)

// Filter is the final veto gate.
type Filter struct {
	provider  llm.Provider
	threshold float64
}

// New creates a veto filter. threshold <= 0 means the default of 5.0.
func New(provider llm.Provider, threshold float64) *Filter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Filter{provider: provider, threshold: threshold}
}

// ShouldReject reports whether a should be dropped and records its waste
// score. Any failure keeps the article.
func (f *Filter) ShouldReject(ctx context.Context, a *article.Article, target article.Category) bool {
	if f.provider == nil {
		return false
	}

	source := a.Source
	if source == "" {
		source = "Unknown"
	}
	prompt := fmt.Sprintf(vetoPrompt, target, a.Title, source, article.Truncate(a.Summary, 500))

	resp, err := f.provider.Generate(ctx, prompt, 100)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("veto call failed, keeping article")
		return false
	}

	score, reason, ok := ParseWaste(resp)
	if !ok {
		log.Warn().Str("title", a.Title).Str("response", resp).Msg("unparseable waste score, keeping article")
		return false
	}

	a.WasteScore = &score
	reject := score > f.threshold
	log.Debug().Str("title", a.Title).Float64("waste", score).Bool("reject", reject).Str("reason", reason).Msg("veto")
	return reject
}

type wasteVerdict struct {
	WasteScore *float64 `json:"waste_score"`
	Reason     string   `json:"reason"`
}

// ParseWaste reads {"waste_score", "reason"} JSON. Failing that it accepts
// a labelled "score: N" or a reply that opens with a bare number. A
// template echo such as "0-10" does not parse. Scores are clamped to [0,10].
func ParseWaste(resp string) (float64, string, bool) {
	var v wasteVerdict
	if err := llm.DecodeJSON(resp, &v); err == nil && v.WasteScore != nil {
		return scoring.Clamp(*v.WasteScore), v.Reason, true
	}
	for _, re := range []*regexp.Regexp{labelledScore, leadingScore} {
		m := re.FindStringSubmatch(resp)
		if m == nil || m[2] != "" {
			continue
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return scoring.Clamp(f), "", true
	}
	return 0, "", false
}
