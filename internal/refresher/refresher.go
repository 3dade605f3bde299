// Package refresher picks the "refresher of the day": a short explainer on
// a foundational concept, rotated so topics do not repeat within a month.
package refresher

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/llm"
)

//go:embed refreshers.yaml
var defaultBankYAML []byte

// RepeatWindow is how long a shown topic stays out of rotation.
const RepeatWindow = 30 * 24 * time.Hour

// bankKeys maps digest categories to topic bank sections.
var bankKeys = map[article.Category]string{
	article.Research:    "ml_research",
	article.Business:    "ai_business",
	article.Ethics:      "ai_ethics",
	article.DataScience: "data_science",
}

// Topic is one refresher entry.
type Topic struct {
	Name              string `yaml:"name"`
	Why               string `yaml:"why"`
	Misconception     string `yaml:"misconception"`
	ExplanationPrompt string `yaml:"explanation_prompt"`
	Source            string `yaml:"source"`
}

// Refresher is a chosen topic with its explanation.
type Refresher struct {
	Topic       Topic
	Explanation string
}

// Bank holds topics keyed by bank section.
type Bank map[string][]Topic

// ParseBank parses a YAML topic bank.
func ParseBank(data []byte) (Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing refresher bank: %w", err)
	}
	return b, nil
}

// DefaultBank returns the embedded topic bank.
func DefaultBank() Bank {
	b, err := ParseBank(defaultBankYAML)
	if err != nil {
		panic(err)
	}
	return b
}

// History records which topics were shown when. *database.DB satisfies it.
type History interface {
	RefresherTopicsShownSince(ctx context.Context, category string, since time.Time) ([]string, error)
	RecordRefresherShown(ctx context.Context, category, topic string, day time.Time) error
}

// Picker chooses and explains refreshers.
type Picker struct {
	bank     Bank
	history  History
	provider llm.Provider
}

// New creates a picker. history and provider may be nil.
func New(bank Bank, history History, provider llm.Provider) *Picker {
	return &Picker{bank: bank, history: history, provider: provider}
}

// Choose returns the topic for category on day, skipping topics shown in
// the last 30 days. When every topic was shown recently the rotation
// starts over. Returns nil when the category has no topics.
func (p *Picker) Choose(ctx context.Context, category article.Category, day time.Time) *Topic {
	key, ok := bankKeys[category]
	if !ok {
		return nil
	}
	topics := p.bank[key]
	if len(topics) == 0 {
		return nil
	}

	recent := map[string]bool{}
	if p.history != nil {
		shown, err := p.history.RefresherTopicsShownSince(ctx, key, day.Add(-RepeatWindow))
		if err != nil {
			log.Warn().Err(err).Msg("reading refresher history failed")
		}
		for _, name := range shown {
			recent[name] = true
		}
	}

	var available []Topic
	for _, t := range topics {
		if !recent[t.Name] {
			available = append(available, t)
		}
	}
	if len(available) == 0 {
		log.Info().Str("category", key).Msg("all refreshers shown recently, restarting rotation")
		available = topics
	}

	sort.SliceStable(available, func(i, j int) bool { return available[i].Name < available[j].Name })
	t := available[day.YearDay()%len(available)]
	return &t
}

// Record marks topic as shown for category on day.
func (p *Picker) Record(ctx context.Context, category article.Category, topic Topic, day time.Time) {
	if p.history == nil {
		return
	}
	key, ok := bankKeys[category]
	if !ok {
		return
	}
	if err := p.history.RecordRefresherShown(ctx, key, topic.Name, day); err != nil {
		log.Warn().Err(err).Str("topic", topic.Name).Msg("recording refresher failed")
	}
}

// Explain asks the model for a short explanation, falling back to the
// topic's why line.
func (p *Picker) Explain(ctx context.Context, topic Topic) string {
	if p.provider == nil || topic.ExplanationPrompt == "" {
		return topic.Why
	}
	resp, err := p.provider.Generate(ctx, topic.ExplanationPrompt, 200)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic.Name).Msg("refresher explanation failed")
		return topic.Why
	}
	if s := strings.TrimSpace(resp); s != "" {
		return s
	}
	return topic.Why
}

// Pick chooses, explains and records the refresher for category on day.
// record=false leaves history untouched.
func (p *Picker) Pick(ctx context.Context, category article.Category, day time.Time, record bool) *Refresher {
	t := p.Choose(ctx, category, day)
	if t == nil {
		return nil
	}
	r := &Refresher{Topic: *t, Explanation: p.Explain(ctx, *t)}
	if record {
		p.Record(ctx, category, *t, day)
	}
	return r
}
