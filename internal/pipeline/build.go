package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/categorize"
	"github.com/TobiSchelling/AIDigest/internal/collect"
	"github.com/TobiSchelling/AIDigest/internal/compose"
	"github.com/TobiSchelling/AIDigest/internal/config"
	"github.com/TobiSchelling/AIDigest/internal/database"
	"github.com/TobiSchelling/AIDigest/internal/deliver"
	"github.com/TobiSchelling/AIDigest/internal/enrich"
	"github.com/TobiSchelling/AIDigest/internal/fetch"
	"github.com/TobiSchelling/AIDigest/internal/llm"
	"github.com/TobiSchelling/AIDigest/internal/memory"
	"github.com/TobiSchelling/AIDigest/internal/refresher"
	"github.com/TobiSchelling/AIDigest/internal/relevance"
	"github.com/TobiSchelling/AIDigest/internal/scoring"
	"github.com/TobiSchelling/AIDigest/internal/selection"
	"github.com/TobiSchelling/AIDigest/internal/tools"
	"github.com/TobiSchelling/AIDigest/internal/vectorstore"
	"github.com/TobiSchelling/AIDigest/internal/veto"
)

// BuildOptions are the per-invocation switches from the command line.
type BuildOptions struct {
	Reasoning bool
	NoMemory  bool
	DaysBack  int
}

// Provider creates the configured language model, bounded by the call
// timeout. Returns nil when no provider is usable.
func Provider(cfg *config.Config) llm.Provider {
	p := llm.CreateProvider(llm.ProviderConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		OllamaURL: cfg.LLM.OllamaURL,
	})
	return llm.WithTimeout(p, cfg.LLM.CallTimeout)
}

// OpenMemory builds the memory from config. The returned close function
// releases a pgvector connection when one was opened.
func OpenMemory(ctx context.Context, cfg *config.Config, db *database.DB) (*memory.Memory, func()) {
	noop := func() {}
	if !cfg.Memory.Enabled {
		return memory.Disabled(), noop
	}

	emb := cfg.LLM.Embedding
	embedder := llm.CreateEmbedder(llm.ProviderConfig{
		Provider:  emb.Provider,
		Model:     emb.Model,
		BaseURL:   emb.BaseURL,
		APIKeyEnv: emb.APIKeyEnv,
		OllamaURL: cfg.LLM.OllamaURL,
	})

	var store memory.Store = memory.NewSQLiteStore(db)
	closeFn := noop
	if cfg.Memory.Backend == "pgvector" {
		dsn := os.Getenv(cfg.Memory.PostgresDSNEnv)
		if dsn == "" {
			log.Warn().Str("env", cfg.Memory.PostgresDSNEnv).Msg("pgvector DSN not set; memory dedup disabled")
			return memory.Disabled(), noop
		}
		pg, err := vectorstore.Open(ctx, dsn)
		if err != nil {
			log.Warn().Err(err).Msg("pgvector unavailable; memory dedup disabled")
			return memory.Disabled(), noop
		}
		store = pg
		closeFn = func() { pg.Close() }
	}

	return memory.New(ctx, store, embedder, memory.Options{
		Threshold:    cfg.Memory.SimilarityThreshold,
		LookbackDays: cfg.Memory.LookbackDays,
		Neighbors:    cfg.Memory.Neighbors,
	}), closeFn
}

// Build wires a pipeline from config. The returned function releases
// resources opened here.
func Build(ctx context.Context, cfg *config.Config, db *database.DB, opts BuildOptions) (*Pipeline, func(), error) {
	provider := Provider(cfg)

	mem, closeMem := memory.Disabled(), func() {}
	if !opts.NoMemory {
		mem, closeMem = OpenMemory(ctx, cfg, db)
	}

	sc, err := NewScorer(cfg, provider, opts.Reasoning)
	if err != nil {
		closeMem()
		return nil, nil, err
	}

	sel := selection.New(selection.Deps{
		Categorizer: categorize.New(provider),
		Memory:      mem,
		Relevance:   relevance.New(provider),
		Scorer:      sc,
		Veto:        veto.New(provider, cfg.Selection.VetoThreshold),
	}, selection.Policy{
		ArticlesPerCategory: cfg.Selection.ArticlesPerCategory,
		MinArticles:         cfg.Selection.MinArticles,
		MinQuality:          cfg.Selection.MinQuality,
		VetoMultiplier:      cfg.Selection.VetoMultiplier,
	})

	composer, err := compose.NewComposer(provider)
	if err != nil {
		closeMem()
		return nil, nil, fmt.Errorf("creating composer: %w", err)
	}

	picker := refresher.New(refresher.DefaultBank(), db, provider)
	p := New(cfg, Components{
		Collector: collect.NewCollector(cfg.Sources, opts.DaysBack, nil),
		Selector:  sel,
		Enricher:  enrich.New(provider, fetch.NewContentFetcher(fetch.DefaultTimeout), picker),
		Composer:  composer,
		Memory:    mem,
		Mailer:    deliver.NewMailer(cfg.Email),
		Poster:    deliver.NewLinkedIn(cfg.LinkedIn, "", nil),
		Reports:   db,
	})
	return p, closeMem, nil
}

// NewScorer returns the plain scorer, or the tool-using reasoner when
// reasoning is on. Both look up citations for arXiv papers.
func NewScorer(cfg *config.Config, provider llm.Provider, reasoning bool) (selection.Scorer, error) {
	toolset := tools.Default(tools.Options{
		SearchURL:          cfg.Reasoning.SearchURL,
		SemanticScholarURL: cfg.Reasoning.SemanticScholarURL,
		Timeout:            cfg.Reasoning.ToolTimeout,
	})

	var citations scoring.CitationCounter
	if t, ok := toolset.Get("CitationLookup"); ok {
		if c, ok := t.(*tools.CitationLookup); ok {
			citations = c
		}
	}
	plain := scoring.NewScorer(provider, citations)

	if !(reasoning || cfg.Reasoning.Enabled) {
		return plain, nil
	}
	if provider == nil {
		return nil, fmt.Errorf("reasoning mode needs a configured LLM provider")
	}
	log.Info().Strs("tools", toolset.Names()).Int("max_iterations", cfg.Reasoning.MaxIterations).Msg("reasoning scorer enabled")
	return scoring.NewReasoner(provider, toolset, cfg.Reasoning.MaxIterations, plain), nil
}
