package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
	"github.com/TobiSchelling/AIDigest/internal/tools"
)

const DefaultMaxIterations = 5

const reactPrompt = `You are a quality assessment agent for a technical newsletter.
Your job is to evaluate if an article is high-quality and suitable for readers.

You have access to the following tools:

%s

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: a quality score from 0-10 with brief reasoning

GUIDELINES:
- Use tools to verify claims (especially if the article mentions "breakthrough" or specific numbers)
- Check citations for research papers (high citations = high impact)
- Check if the topic is trending (trending = timely and relevant)
- Be skeptical of marketing claims
- Value novelty, practical applicability, and significance

Question: Evaluate this article for a %s newsletter:

Title: %s
Summary: %s
Source: %s

Score this article from 0-10 considering:
- Novelty: Is this new information or rehashed content?
- Practical: Can readers immediately use this?
- Significance: Will this matter in 6 months?

Use your tools to verify claims and assess impact.

Thought:%s`

var (
	numberPattern      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	actionPattern      = regexp.MustCompile(`(?m)^\s*Action\s*:\s*(.+?)\s*$`)
	actionInputPattern = regexp.MustCompile(`(?m)^\s*Action\s*Input\s*:\s*(.+?)\s*$`)
)

// Step is one action/observation pair of the reasoning trail.
type Step struct {
	Action      string
	Input       string
	Observation string
}

// Reasoner scores articles with a bounded reason-act-observe loop and
// falls back to the plain scorer when the loop does not finish.
type Reasoner struct {
	provider      llm.Provider
	tools         *tools.Set
	maxIterations int
	fallback      *Scorer
}

// NewReasoner creates the reasoning scorer. maxIterations <= 0 means the
// default of 5.
func NewReasoner(provider llm.Provider, toolset *tools.Set, maxIterations int, fallback *Scorer) *Reasoner {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if toolset == nil {
		toolset = tools.NewSet()
	}
	if fallback == nil {
		fallback = NewScorer(provider, nil)
	}
	return &Reasoner{provider: provider, tools: toolset, maxIterations: maxIterations, fallback: fallback}
}

// Score runs the loop. On success every sub-score is the agent score and
// a.ReactReasoning carries the trail.
func (r *Reasoner) Score(ctx context.Context, a *article.Article, target article.Category) float64 {
	score, trail, err := r.run(ctx, a, target)
	if err != nil {
		log.Warn().Err(err).Str("title", a.Title).Msg("reasoning scorer failed, falling back")
		return r.fallback.Score(ctx, a, target)
	}

	m := NewMetrics(score, score, score)
	a.Metrics = m
	a.ReactReasoning = FormatTrail(trail)
	log.Debug().Str("title", a.Title).Float64("score", m.FinalScore).Int("steps", len(trail)).Msg("scored with reasoning")
	return m.FinalScore
}

func (r *Reasoner) run(ctx context.Context, a *article.Article, target article.Category) (float64, []Step, error) {
	if r.provider == nil {
		return 0, nil, fmt.Errorf("no provider")
	}

	var trail []Step
	var scratch strings.Builder
	for i := 0; i < r.maxIterations; i++ {
		resp, err := r.provider.Generate(ctx, r.prompt(a, target, scratch.String()), 256)
		if err != nil {
			return 0, trail, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		resp = cutHallucinatedObservation(resp)

		if final, ok := finalAnswer(resp); ok {
			if score, ok := ParseAgentScore(final); ok {
				return score, trail, nil
			}
			step := Step{Action: "_Exception", Observation: "Final Answer must start with a number from 0 to 10."}
			trail = append(trail, step)
			appendStep(&scratch, resp, step)
			continue
		}

		step := r.act(ctx, resp)
		trail = append(trail, step)
		appendStep(&scratch, resp, step)
	}
	return 0, trail, fmt.Errorf("no final answer after %d iterations", r.maxIterations)
}

func (r *Reasoner) act(ctx context.Context, resp string) Step {
	action := actionPattern.FindStringSubmatch(resp)
	input := actionInputPattern.FindStringSubmatch(resp)
	if action == nil || input == nil {
		return Step{
			Action:      "_Exception",
			Observation: "Invalid Format: expected 'Action:' and 'Action Input:' lines, or 'Final Answer:'.",
		}
	}

	name := strings.Trim(strings.TrimSpace(action[1]), "[]`\"")
	arg := strings.Trim(strings.TrimSpace(input[1]), "\"")
	tool, ok := r.tools.Get(name)
	if !ok {
		return Step{
			Action:      name,
			Input:       arg,
			Observation: fmt.Sprintf("%s is not a valid tool, try one of [%s].", name, strings.Join(r.tools.Names(), ", ")),
		}
	}

	obs := tool.Run(ctx, arg)
	log.Debug().Str("tool", name).Str("input", arg).Msg("tool call")
	return Step{Action: name, Input: arg, Observation: obs}
}

func (r *Reasoner) prompt(a *article.Article, target article.Category, scratch string) string {
	var descs []string
	for _, t := range r.tools.All() {
		descs = append(descs, t.Name()+": "+t.Description())
	}
	source := a.Source
	if source == "" {
		source = "Unknown"
	}
	return fmt.Sprintf(reactPrompt, strings.Join(descs, "\n"), strings.Join(r.tools.Names(), ", "),
		target, a.Title, article.Truncate(a.Summary, summaryLimit), source, scratch)
}

func appendStep(scratch *strings.Builder, resp string, step Step) {
	scratch.WriteString(" ")
	scratch.WriteString(strings.TrimSpace(resp))
	scratch.WriteString("\nObservation: ")
	scratch.WriteString(step.Observation)
	scratch.WriteString("\nThought:")
}

// cutHallucinatedObservation drops anything the model wrote after its own
// Observation line; observations come from tools only.
func cutHallucinatedObservation(resp string) string {
	if i := strings.Index(resp, "\nObservation:"); i >= 0 {
		return resp[:i]
	}
	return resp
}

func finalAnswer(resp string) (string, bool) {
	const marker = "Final Answer:"
	i := strings.Index(resp, marker)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(resp[i+len(marker):]), true
}

// ParseAgentScore reads the first number of a final answer. Values above
// 10 are divided by 10, then the result is clamped to [0,10].
func ParseAgentScore(answer string) (float64, bool) {
	m := numberPattern.FindString(answer)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v > MaxScore {
		v /= 10
	}
	return Clamp(v), true
}

// FormatTrail renders the trail for display.
func FormatTrail(trail []Step) string {
	if len(trail) == 0 {
		return "No reasoning trail available"
	}
	var lines []string
	for i, s := range trail {
		lines = append(lines, fmt.Sprintf("Step %d:", i+1))
		if s.Input != "" {
			lines = append(lines, fmt.Sprintf("  Action: %s(%s)", s.Action, s.Input))
		} else {
			lines = append(lines, "  Action: "+s.Action)
		}
		lines = append(lines, "  Result: "+s.Observation)
	}
	return strings.Join(lines, "\n")
}
