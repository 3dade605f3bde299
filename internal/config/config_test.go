package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("expected provider 'groq', got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.CallTimeout != 60*time.Second {
		t.Errorf("expected 60s call timeout, got %v", cfg.LLM.CallTimeout)
	}
	if cfg.Memory.SimilarityThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", cfg.Memory.SimilarityThreshold)
	}
	if cfg.Selection.ArticlesPerCategory != 5 || cfg.Selection.MinArticles != 3 {
		t.Errorf("expected 5/3 selection bounds, got %d/%d", cfg.Selection.ArticlesPerCategory, cfg.Selection.MinArticles)
	}
	if len(cfg.Schedule) != 4 {
		t.Errorf("expected 4 scheduled days, got %d", len(cfg.Schedule))
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
llm:
  provider: ollama
  model: qwen2.5:7b
selection:
  articles_per_category: 4
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.LLM.Provider)
	}
	if cfg.Selection.ArticlesPerCategory != 4 {
		t.Errorf("expected 4 articles, got %d", cfg.Selection.ArticlesPerCategory)
	}
	// Defaults should still be set for unspecified fields
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.LLM.OllamaURL)
	}
	if cfg.Selection.MinQuality != 6.0 {
		t.Errorf("expected default min quality 6.0, got %v", cfg.Selection.MinQuality)
	}
	if len(cfg.Schedule) == 0 {
		t.Error("expected default schedule")
	}
	if len(cfg.Sources.HackerNews.Keywords) == 0 {
		t.Error("expected default hacker news keywords")
	}
}

func TestParseRejectsBadThreshold(t *testing.T) {
	_, err := parse([]byte("memory:\n  similarity_threshold: 1.5\n"))
	if err == nil || !strings.Contains(err.Error(), "similarity_threshold") {
		t.Errorf("expected threshold validation error, got %v", err)
	}
}

func TestParseRejectsMinAboveTarget(t *testing.T) {
	_, err := parse([]byte("selection:\n  articles_per_category: 2\n  min_articles: 3\n"))
	if err == nil {
		t.Error("expected min_articles validation error")
	}
}

func TestParseRejectsUnknownCategory(t *testing.T) {
	data := []byte(`
schedule:
  sunday:
    name: Sports Sunday
    category: Sports
`)
	_, err := parse(data)
	if err == nil || !strings.Contains(err.Error(), "schedule.sunday") {
		t.Errorf("expected schedule validation error, got %v", err)
	}
}

func TestThemeForAndDays(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	theme, ok := cfg.ThemeFor("Friday")
	if !ok {
		t.Fatal("expected friday theme")
	}
	if theme.Category != article.Ethics {
		t.Errorf("expected ethics category, got %q", theme.Category)
	}
	if _, ok := cfg.ThemeFor("tuesday"); ok {
		t.Error("expected no tuesday theme")
	}

	days := cfg.Days()
	want := []string{"monday", "wednesday", "friday", "saturday"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], days[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AIDIGEST_TEST_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Chdir(dir)
	os.Unsetenv("AIDIGEST_TEST_KEY")
	t.Cleanup(func() { os.Unsetenv("AIDIGEST_TEST_KEY") })

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("AIDIGEST_TEST_KEY"); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.ArchiveDir() != filepath.Join("/custom/path", "email_archives") {
		t.Errorf("unexpected archive dir %q", cfg.ArchiveDir())
	}
}
