package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Schedule  map[string]Theme `yaml:"schedule"`
	Sources   Sources          `yaml:"sources"`
	LLM       LLM              `yaml:"llm"`
	Memory    Memory           `yaml:"memory"`
	Selection Selection        `yaml:"selection"`
	Reasoning Reasoning        `yaml:"reasoning"`
	Output    Output           `yaml:"output"`
	Email     Email            `yaml:"email"`
	LinkedIn  LinkedIn         `yaml:"linkedin"`
	Logging   Logging          `yaml:"logging"`
}

// Theme is the schedule entry for one weekday.
type Theme struct {
	Name        string           `yaml:"name"`
	Category    article.Category `yaml:"category"`
	Description string           `yaml:"description"`
}

type Sources struct {
	Feeds      []Feed     `yaml:"feeds"`
	Arxiv      Arxiv      `yaml:"arxiv"`
	HackerNews HackerNews `yaml:"hackernews"`
	DaysBack   int        `yaml:"days_back"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Arxiv struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Query      string `yaml:"query"`
	MaxResults int    `yaml:"max_results"`
	DaysBack   int    `yaml:"days_back"`
}

type HackerNews struct {
	Enabled    bool     `yaml:"enabled"`
	URL        string   `yaml:"url"`
	TopStories int      `yaml:"top_stories"`
	Keywords   []string `yaml:"keywords"`
}

type LLM struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	OllamaURL   string        `yaml:"ollama_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	Embedding   Embedding     `yaml:"embedding"`
}

type Embedding struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Memory struct {
	Enabled             bool    `yaml:"enabled"`
	Backend             string  `yaml:"backend"`
	PostgresDSNEnv      string  `yaml:"postgres_dsn_env"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	LookbackDays        int     `yaml:"lookback_days"`
	Neighbors           int     `yaml:"neighbors"`
}

type Selection struct {
	ArticlesPerCategory int     `yaml:"articles_per_category"`
	MinArticles         int     `yaml:"min_articles"`
	MinQuality          float64 `yaml:"min_quality"`
	VetoThreshold       float64 `yaml:"veto_threshold"`
	VetoMultiplier      int     `yaml:"veto_multiplier"`
}

type Reasoning struct {
	Enabled            bool          `yaml:"enabled"`
	MaxIterations      int           `yaml:"max_iterations"`
	ToolTimeout        time.Duration `yaml:"tool_timeout"`
	SemanticScholarURL string        `yaml:"semantic_scholar_url"`
	SearchURL          string        `yaml:"search_url"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Email struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SenderEnv    string `yaml:"sender_env"`
	RecipientEnv string `yaml:"recipient_env"`
	PasswordEnv  string `yaml:"password_env"`
}

type LinkedIn struct {
	Enabled           bool   `yaml:"enabled"`
	AccessTokenEnv    string `yaml:"access_token_env"`
	OrganizationIDEnv string `yaml:"organization_id_env"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for aidigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "aidigest")
}

// DataDir returns the XDG data directory for aidigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "aidigest")
}

// LoadDotEnv loads ./.env into the process environment when present.
// Variables already set are left alone.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/aidigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'aidigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			Arxiv: Arxiv{
				Enabled:    true,
				Query:      "cat:cs.AI OR cat:cs.LG OR cat:cs.CL",
				MaxResults: 50,
				DaysBack:   2,
			},
			HackerNews: HackerNews{
				Enabled:    true,
				TopStories: 150,
			},
			DaysBack: 1,
		},
		LLM: LLM{
			Provider:    "groq",
			Model:       "llama-3.1-8b-instant",
			APIKeyEnv:   "GROQ_API_KEY",
			OllamaURL:   "http://localhost:11434",
			MaxTokens:   512,
			CallTimeout: 60 * time.Second,
			Embedding: Embedding{
				Provider:  "openai",
				Model:     "text-embedding-3-small",
				APIKeyEnv: "OPENAI_API_KEY",
			},
		},
		Memory: Memory{
			Enabled:             true,
			Backend:             "sqlite",
			PostgresDSNEnv:      "MEMORY_DATABASE_URL",
			SimilarityThreshold: 0.85,
			LookbackDays:        60,
			Neighbors:           5,
		},
		Selection: Selection{
			ArticlesPerCategory: 5,
			MinArticles:         3,
			MinQuality:          6.0,
			VetoThreshold:       5.0,
			VetoMultiplier:      2,
		},
		Reasoning: Reasoning{
			MaxIterations:      5,
			ToolTimeout:        10 * time.Second,
			SemanticScholarURL: "https://api.semanticscholar.org/graph/v1/paper/search",
			SearchURL:          "https://html.duckduckgo.com/html/",
		},
		Email: Email{
			SMTPHost:     "smtp.gmail.com",
			SMTPPort:     465,
			SenderEnv:    "EMAIL_SENDER",
			RecipientEnv: "EMAIL_RECIPIENT",
			PasswordEnv:  "GMAIL_APP_PASSWORD",
		},
		LinkedIn: LinkedIn{
			AccessTokenEnv:    "LINKEDIN_ACCESS_TOKEN",
			OrganizationIDEnv: "LINKEDIN_ORGANIZATION_ID",
		},
		Logging: Logging{Level: "INFO", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Schedule) == 0 {
		cfg.Schedule = DefaultSchedule()
	}
	if len(cfg.Sources.HackerNews.Keywords) == 0 {
		cfg.Sources.HackerNews.Keywords = DefaultHackerNewsKeywords
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultSchedule is the weekly theme rotation used when the config
// defines none.
func DefaultSchedule() map[string]Theme {
	return map[string]Theme{
		"monday": {
			Name:        "ML Monday",
			Category:    article.Research,
			Description: "Latest ML research, papers, and technical breakthroughs",
		},
		"wednesday": {
			Name:        "ML Business Briefing",
			Category:    article.Business,
			Description: "AI startups, funding, products, and industry moves",
		},
		"friday": {
			Name:        "Ethics Friday",
			Category:    article.Ethics,
			Description: "AI safety, regulation, societal impact, and policy debates",
		},
		"saturday": {
			Name:        "Data Science Saturday",
			Category:    article.DataScience,
			Description: "Data science, analytics, SQL, statistics, and practical data insights",
		},
	}
}

// DefaultHackerNewsKeywords filter top stories by title.
var DefaultHackerNewsKeywords = []string{
	"ai", "ml", "llm", "transformer", "neural network", "openai", "deepmind",
	"anthropic", "pytorch", "tensorflow", "diffusion model", "attention is all you need",
}

// Validate checks value ranges that would make the pipeline misbehave.
func (c *Config) Validate() error {
	var errs []error
	m := c.Memory
	if m.SimilarityThreshold <= 0 || m.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("memory.similarity_threshold must be in (0,1], got %v", m.SimilarityThreshold))
	}
	if m.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("memory.lookback_days must be positive, got %d", m.LookbackDays))
	}
	if m.Backend != "sqlite" && m.Backend != "pgvector" {
		errs = append(errs, fmt.Errorf("memory.backend must be sqlite or pgvector, got %q", m.Backend))
	}

	s := c.Selection
	if s.ArticlesPerCategory <= 0 {
		errs = append(errs, fmt.Errorf("selection.articles_per_category must be positive, got %d", s.ArticlesPerCategory))
	}
	if s.MinArticles < 0 || s.MinArticles > s.ArticlesPerCategory {
		errs = append(errs, fmt.Errorf("selection.min_articles must be between 0 and articles_per_category, got %d", s.MinArticles))
	}
	if s.VetoMultiplier < 1 {
		errs = append(errs, fmt.Errorf("selection.veto_multiplier must be at least 1, got %d", s.VetoMultiplier))
	}
	if c.Reasoning.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("reasoning.max_iterations must be at least 1, got %d", c.Reasoning.MaxIterations))
	}

	for day, theme := range c.Schedule {
		if !article.Known(theme.Category) || theme.Category == article.Irrelevant {
			errs = append(errs, fmt.Errorf("schedule.%s: unknown category %q", day, theme.Category))
		}
	}
	return errors.Join(errs...)
}

// ThemeFor returns the schedule entry for a weekday name such as "Monday".
func (c *Config) ThemeFor(day string) (Theme, bool) {
	t, ok := c.Schedule[strings.ToLower(strings.TrimSpace(day))]
	return t, ok
}

// Days returns the scheduled weekday keys in calendar order.
func (c *Config) Days() []string {
	order := map[string]int{
		"monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4,
		"friday": 5, "saturday": 6, "sunday": 7,
	}
	days := make([]string, 0, len(c.Schedule))
	for d := range c.Schedule {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, oj := order[days[i]], order[days[j]]
		if oi != oj {
			return oi < oj
		}
		return days[i] < days[j]
	})
	return days
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// ArchiveDir is where rendered digests are saved.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.GetDataDir(), "email_archives")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
