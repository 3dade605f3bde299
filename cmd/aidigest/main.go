package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/categorize"
	"github.com/TobiSchelling/AIDigest/internal/config"
	"github.com/TobiSchelling/AIDigest/internal/database"
	"github.com/TobiSchelling/AIDigest/internal/logging"
	"github.com/TobiSchelling/AIDigest/internal/pipeline"
	"github.com/TobiSchelling/AIDigest/internal/selection"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aidigest",
	Short:   "Themed AI news digests",
	Long:    "AIDigest collects AI news, filters and scores it with a language model, and mails a themed digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup("INFO", "console", verbose)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(testAllCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(memoryCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("aidigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/aidigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, the schedule, and the LLM provider. API keys go in .env.")
		return nil
	},
}

// --- run command ---

var (
	testMode  bool
	reasoning bool
	noMemory  bool
	daysBack  int
)

var runCmd = &cobra.Command{
	Use:   "run [day]",
	Short: "Build and send the digest for today's theme, or for the named weekday",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		dayName := strings.ToLower(now.Weekday().String())
		if len(args) == 1 {
			dayName = strings.ToLower(args[0])
		}

		theme, ok := cfg.ThemeFor(dayName)
		if !ok {
			fmt.Printf("No digest scheduled for %s. Scheduled days: %s\n", dayName, strings.Join(cfg.Days(), ", "))
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe, closeFn, err := pipeline.Build(cmd.Context(), cfg, db, buildOptions())
		if err != nil {
			return err
		}
		defer closeFn()

		result := pipe.Run(cmd.Context(), theme, now, pipeline.Options{Test: testMode})
		printResult(result)
		return result.Err()
	},
}

func buildOptions() pipeline.BuildOptions {
	return pipeline.BuildOptions{Reasoning: reasoning, NoMemory: noMemory, DaysBack: daysBack}
}

func init() {
	for _, c := range []*cobra.Command{runCmd, testAllCmd} {
		c.Flags().BoolVar(&reasoning, "reasoning", false, "Score with the tool-using reasoning agent")
		c.Flags().BoolVar(&noMemory, "no-memory", false, "Skip duplicate checks against previously sent articles")
		c.Flags().IntVar(&daysBack, "days-back", 0, "Override lookback window (days)")
	}
	runCmd.Flags().BoolVar(&testMode, "test", false, "Archive the digest without sending it")
}

func printResult(r *pipeline.Result) {
	fmt.Printf("\n%s (%s) for %s\n", r.Theme.Name, r.Theme.Category, r.Day)
	for i, step := range r.Steps {
		fmt.Printf("Step %d: %s\n", i+1, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	if r.Empty() {
		fmt.Printf("\nNo digest today: %s.\n", emptyHint(r))
	}
	if r.ArchivePath != "" {
		fmt.Printf("\nDigest saved to %s\n", r.ArchivePath)
	}
}

func emptyHint(r *pipeline.Result) string {
	s := r.Selection
	switch s.Empty {
	case selection.StageCategorize:
		return fmt.Sprintf("%s. Check that the sources produced articles for this theme", s.Reason)
	case selection.StageDedup:
		return fmt.Sprintf("%s. Try --no-memory or lower memory.similarity_threshold", s.Reason)
	case selection.StageRelevance:
		return fmt.Sprintf("%s. Check the LLM provider; the gate rejects on failure", s.Reason)
	case selection.StageScoring:
		return fmt.Sprintf("%s. Lower selection.min_quality to be less strict", s.Reason)
	}
	return s.Reason
}

// --- test-all command ---

var testAllCmd = &cobra.Command{
	Use:   "test-all",
	Short: "Run every scheduled theme in test mode, in parallel",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		days := cfg.Days()
		results := make([]*pipeline.Result, len(days))
		now := time.Now()

		g, ctx := errgroup.WithContext(cmd.Context())
		for i, day := range days {
			theme, _ := cfg.ThemeFor(day)
			g.Go(func() error {
				pipe, closeFn, err := pipeline.Build(ctx, cfg, db, buildOptions())
				if err != nil {
					return fmt.Errorf("%s: %w", day, err)
				}
				defer closeFn()
				r := pipe.Run(ctx, theme, now, pipeline.Options{Test: true})
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := 0
		for i, r := range results {
			fmt.Printf("\n=== %s ===", days[i])
			printResult(r)
			if r.Err() != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d themes failed", failed, len(days))
		}
		return nil
	},
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the weekly theme schedule",
	Run: func(cmd *cobra.Command, args []string) {
		today := strings.ToLower(time.Now().Weekday().String())
		for _, day := range cfg.Days() {
			theme, _ := cfg.ThemeFor(day)
			marker := " "
			if day == today {
				marker = "*"
			}
			fmt.Printf("%s %-10s %s\n", marker, day, theme.Name)
			fmt.Printf("  %-10s %s\n", "", theme.Category)
		}
	},
}

// --- memory command ---

var topicDays int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect the memory of sent articles",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		mem, closeFn := pipeline.OpenMemory(cmd.Context(), cfg, db)
		defer closeFn()

		s := mem.Stats(cmd.Context())
		if !s.Enabled {
			fmt.Println("Memory: disabled")
			return nil
		}
		fmt.Println("Memory: enabled")
		fmt.Printf("  Backend: %s\n", cfg.Memory.Backend)
		fmt.Printf("  Articles stored: %d\n", s.TotalArticles)
		fmt.Printf("  Lookback: %d days\n", s.LookbackDays)
		fmt.Printf("  Similarity threshold: %.2f\n", s.SimilarityThreshold)
		if s.Error != "" {
			fmt.Printf("  Error: %s\n", s.Error)
		}
		return nil
	},
}

var memoryTopicsCmd = &cobra.Command{
	Use:   "topics <category>",
	Short: "Show the most covered title words for a category or weekday",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := resolveCategory(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		mem, closeFn := pipeline.OpenMemory(cmd.Context(), cfg, db)
		defer closeFn()

		topics := mem.TopicCoverage(cmd.Context(), category, topicDays)
		if len(topics) == 0 {
			fmt.Printf("No coverage for %s in the last %d days.\n", category, topicDays)
			return nil
		}
		fmt.Printf("%s, last %d days:\n", category, topicDays)
		for _, t := range topics {
			fmt.Printf("  %-24s %d\n", t.Topic, t.Count)
		}
		return nil
	},
}

func init() {
	memoryTopicsCmd.Flags().IntVar(&topicDays, "days", 30, "Days of history to include")
	memoryCmd.AddCommand(memoryStatsCmd)
	memoryCmd.AddCommand(memoryTopicsCmd)
}

// resolveCategory accepts a scheduled weekday or any part of a category name.
func resolveCategory(arg string) (article.Category, error) {
	if theme, ok := cfg.ThemeFor(strings.ToLower(arg)); ok {
		return theme.Category, nil
	}
	lower := strings.ToLower(strings.TrimSpace(arg))
	for _, c := range article.Categories {
		if c != article.Irrelevant && lower != "" && strings.Contains(strings.ToLower(string(c)), lower) {
			return c, nil
		}
	}
	if c := categorize.MatchLabel(arg); c != article.Irrelevant {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", arg)
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and recent run status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		stats, err := db.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Printf("  Memory records: %d\n", stats.MemoryRecords)
		fmt.Printf("  Runs: %d (%d empty)\n", stats.RunReports, stats.EmptyRuns)
		if stats.LastRunAt != "" {
			fmt.Printf("  Last run: %s\n", stats.LastRunAt)
		}

		reports, err := db.RecentRunReports(ctx, 5)
		if err != nil {
			log.Warn().Err(err).Msg("reading run reports failed")
			return nil
		}
		if len(reports) > 0 {
			fmt.Println("\nRecent runs:")
		}
		for _, r := range reports {
			outcome := fmt.Sprintf("%d selected, %d fallbacks", r.Selected, r.Fallbacks)
			if r.EmptyStage != "" {
				outcome = "empty at " + r.EmptyStage
			}
			mode := ""
			if r.TestMode {
				mode = " [test]"
			}
			fmt.Printf("  %s  %-36s %s%s\n", r.Day, r.Category, outcome, mode)
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "aidigest.db")
	return database.Open(dbPath)
}
