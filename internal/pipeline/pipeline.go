package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/collect"
	"github.com/TobiSchelling/AIDigest/internal/compose"
	"github.com/TobiSchelling/AIDigest/internal/config"
	"github.com/TobiSchelling/AIDigest/internal/database"
	"github.com/TobiSchelling/AIDigest/internal/deliver"
	"github.com/TobiSchelling/AIDigest/internal/enrich"
	"github.com/TobiSchelling/AIDigest/internal/memory"
	"github.com/TobiSchelling/AIDigest/internal/selection"
)

// Collector gathers candidate articles.
type Collector interface {
	Collect(ctx context.Context) *collect.Result
}

// Selector runs the filtering pipeline for one category.
type Selector interface {
	Select(ctx context.Context, articles []*article.Article, target article.Category, day time.Time) *selection.Result
}

// Enricher rewrites summaries and adds the joke and refresher.
type Enricher interface {
	Enrich(ctx context.Context, articles []*article.Article, category article.Category, day time.Time, record bool) *enrich.Result
}

// Composer renders the digest.
type Composer interface {
	Compose(ctx context.Context, theme config.Theme, articles []*article.Article, extras *enrich.Result, day time.Time) (*compose.Digest, error)
}

// Recorder remembers sent articles.
type Recorder interface {
	Store(ctx context.Context, a *article.Article, category article.Category, score float64)
}

// Mailer sends the digest email.
type Mailer interface {
	IsConfigured() bool
	Send(ctx context.Context, subject, html string) error
}

// Poster publishes the social post.
type Poster interface {
	IsConfigured() bool
	Post(ctx context.Context, content string) (string, error)
}

// Reports stores per-run stage counts.
type Reports interface {
	InsertRunReport(ctx context.Context, r database.RunReport) (int64, error)
}

var (
	_ Collector = (*collect.Collector)(nil)
	_ Selector  = (*selection.Selector)(nil)
	_ Enricher  = (*enrich.Enricher)(nil)
	_ Composer  = (*compose.Composer)(nil)
	_ Recorder  = (*memory.Memory)(nil)
	_ Mailer    = (*deliver.Mailer)(nil)
	_ Poster    = (*deliver.LinkedIn)(nil)
	_ Reports   = (*database.DB)(nil)
)

// Components wires the pipeline steps. Memory, Mailer, Poster and Reports
// may be nil.
type Components struct {
	Collector Collector
	Selector  Selector
	Enricher  Enricher
	Composer  Composer
	Memory    Recorder
	Mailer    Mailer
	Poster    Poster
	Reports   Reports
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Day         string
	Theme       config.Theme
	Steps       []StepResult
	Selection   *selection.Result
	Digest      *compose.Digest
	ArchivePath string
}

// Empty reports whether the run stopped because a stage left nothing.
func (r *Result) Empty() bool {
	return r.Selection != nil && r.Selection.IsEmpty()
}

// Err returns the first step error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Options controls one run.
type Options struct {
	// Test archives the digest but sends nothing and records no history.
	Test bool
}

// Pipeline orchestrates collect, select, remember, enrich, compose and
// deliver for one themed day.
type Pipeline struct {
	c          Components
	archiveDir string
	email      bool
	linkedIn   bool
	now        func() time.Time
}

// New creates a pipeline from explicit components.
func New(cfg *config.Config, c Components) *Pipeline {
	return &Pipeline{
		c:          c,
		archiveDir: cfg.ArchiveDir(),
		email:      cfg.Email.Enabled,
		linkedIn:   cfg.LinkedIn.Enabled,
		now:        time.Now,
	}
}

// Run executes every step for theme on day.
func (p *Pipeline) Run(ctx context.Context, theme config.Theme, day time.Time, opts Options) *Result {
	r := &Result{Day: day.Format("2006-01-02"), Theme: theme}
	log.Info().Str("theme", theme.Name).Str("category", string(theme.Category)).Str("day", r.Day).Bool("test", opts.Test).Msg("starting digest run")

	log.Info().Msg("Step 1/6: Collecting articles...")
	collected := p.c.Collector.Collect(ctx)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d articles from %d sources", len(collected.Articles), len(collected.Sources)),
	})

	log.Info().Msg("Step 2/6: Selecting articles...")
	sel := p.c.Selector.Select(ctx, collected.Articles, theme.Category, day)
	r.Selection = sel
	if sel.IsEmpty() {
		r.Steps = append(r.Steps, StepResult{Name: "Select", Summary: fmt.Sprintf("Stopped at %s: %s", sel.Empty, sel.Reason)})
		p.report(ctx, r, opts)
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Select",
		Summary: fmt.Sprintf("Selected %d articles (%d fallbacks) from %d relevant, %d vetoed",
			len(sel.Articles), sel.Counts.Fallbacks, sel.Counts.Relevant, sel.Counts.Vetoed),
	})

	// Memory embeds the feed summary, so this runs before Enrich rewrites it.
	log.Info().Msg("Step 3/6: Remembering sent articles...")
	r.Steps = append(r.Steps, p.remember(ctx, sel, opts))

	log.Info().Msg("Step 4/6: Enriching articles...")
	extras := p.c.Enricher.Enrich(ctx, sel.Articles, theme.Category, day, !opts.Test)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Rewrote %d summaries", extras.Summarized),
	})

	log.Info().Msg("Step 5/6: Composing digest...")
	digest, err := p.c.Composer.Compose(ctx, theme, sel.Articles, extras, day)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Compose", Err: err})
		p.report(ctx, r, opts)
		return r
	}
	r.Digest = digest
	r.Steps = append(r.Steps, StepResult{Name: "Compose", Summary: digest.Subject})

	log.Info().Msg("Step 6/6: Delivering digest...")
	r.Steps = append(r.Steps, p.deliver(ctx, r, opts))

	p.report(ctx, r, opts)
	return r
}

func (p *Pipeline) remember(ctx context.Context, sel *selection.Result, opts Options) StepResult {
	step := StepResult{Name: "Remember"}
	if opts.Test || p.c.Memory == nil {
		step.Summary = "Skipped"
		return step
	}
	stored := 0
	for _, a := range sel.Articles {
		if a.IsFallback() {
			continue
		}
		p.c.Memory.Store(ctx, a, sel.Category, a.FinalScore())
		stored++
	}
	step.Summary = fmt.Sprintf("Stored %d articles", stored)
	return step
}

func (p *Pipeline) deliver(ctx context.Context, r *Result, opts Options) StepResult {
	step := StepResult{Name: "Deliver"}

	path, err := deliver.Archive(p.archiveDir, r.Digest.HTML, p.now())
	if err != nil {
		step.Err = err
		return step
	}
	r.ArchivePath = path
	summary := "Archived to " + path

	if opts.Test {
		step.Summary = summary + " (test mode, nothing sent)"
		return step
	}

	if p.email && p.c.Mailer != nil && p.c.Mailer.IsConfigured() {
		if err := p.c.Mailer.Send(ctx, r.Digest.Subject, r.Digest.HTML); err != nil {
			log.Error().Err(err).Msg("failed to send email")
			summary += "; email failed"
		} else {
			summary += "; email sent"
		}
	} else if p.email {
		log.Warn().Msg("email credentials not found, skipping email")
	}

	if p.linkedIn && r.Digest.SocialPost != nil && p.c.Poster != nil && p.c.Poster.IsConfigured() {
		if _, err := p.c.Poster.Post(ctx, *r.Digest.SocialPost); err != nil {
			log.Error().Err(err).Msg("failed to post to LinkedIn")
			summary += "; LinkedIn failed"
		} else {
			summary += "; posted to LinkedIn"
		}
	}

	step.Summary = summary
	return step
}

func (p *Pipeline) report(ctx context.Context, r *Result, opts Options) {
	if p.c.Reports == nil || r.Selection == nil {
		return
	}
	c := r.Selection.Counts
	rep := database.RunReport{
		Day:         r.Day,
		Category:    string(r.Theme.Category),
		Fetched:     c.Fetched,
		Categorized: c.Categorized,
		Unique:      c.Unique,
		Relevant:    c.Relevant,
		Scored:      c.Scored,
		Vetoed:      c.Vetoed,
		Selected:    c.Selected,
		Fallbacks:   c.Fallbacks,
		EmptyStage:  string(r.Selection.Empty),
		TestMode:    opts.Test,
		ArchivePath: r.ArchivePath,
	}
	if _, err := p.c.Reports.InsertRunReport(ctx, rep); err != nil {
		log.Warn().Err(err).Msg("failed to record run report")
	}
}
