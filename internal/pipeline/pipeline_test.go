package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/collect"
	"github.com/TobiSchelling/AIDigest/internal/compose"
	"github.com/TobiSchelling/AIDigest/internal/config"
	"github.com/TobiSchelling/AIDigest/internal/database"
	"github.com/TobiSchelling/AIDigest/internal/enrich"
	"github.com/TobiSchelling/AIDigest/internal/selection"
)

type fakeCollector struct{ articles []*article.Article }

func (f *fakeCollector) Collect(context.Context) *collect.Result {
	return &collect.Result{Articles: f.articles, Sources: map[string]int{"Test": len(f.articles)}}
}

type fakeSelector struct{ res *selection.Result }

func (f *fakeSelector) Select(_ context.Context, articles []*article.Article, target article.Category, _ time.Time) *selection.Result {
	f.res.Category = target
	f.res.Counts.Fetched = len(articles)
	return f.res
}

type fakeEnricher struct{ record *bool }

func (f *fakeEnricher) Enrich(_ context.Context, articles []*article.Article, _ article.Category, _ time.Time, record bool) *enrich.Result {
	f.record = &record
	for _, a := range articles {
		a.Summary = "rewritten"
	}
	return &enrich.Result{Joke: "joke", Summarized: len(articles)}
}

type fakeComposer struct{ err error }

func (f *fakeComposer) Compose(_ context.Context, theme config.Theme, _ []*article.Article, _ *enrich.Result, _ time.Time) (*compose.Digest, error) {
	if f.err != nil {
		return nil, f.err
	}
	post := "post"
	return &compose.Digest{Subject: theme.Name, HTML: "<html></html>", SocialPost: &post}, nil
}

type fakeMemory struct {
	stored    []string
	summaries []string
}

func (f *fakeMemory) Store(_ context.Context, a *article.Article, _ article.Category, _ float64) {
	f.stored = append(f.stored, a.Link)
	f.summaries = append(f.summaries, a.Summary)
}

type fakeMailer struct{ sent int }

func (f *fakeMailer) IsConfigured() bool { return true }
func (f *fakeMailer) Send(context.Context, string, string) error {
	f.sent++
	return nil
}

type fakePoster struct {
	posts int
	err   error
}

func (f *fakePoster) IsConfigured() bool { return true }
func (f *fakePoster) Post(context.Context, string) (string, error) {
	f.posts++
	return "id", f.err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	day   = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	theme = config.Theme{Name: "ML Monday", Category: article.Research}
)

type harness struct {
	p        *Pipeline
	db       *database.DB
	enricher *fakeEnricher
	memory   *fakeMemory
	mailer   *fakeMailer
	poster   *fakePoster
}

func newHarness(t *testing.T, res *selection.Result, composeErr error) *harness {
	t.Helper()
	cfg := &config.Config{
		Output:   config.Output{DataDir: t.TempDir()},
		Email:    config.Email{Enabled: true},
		LinkedIn: config.LinkedIn{Enabled: true},
	}
	h := &harness{
		db:       openTestDB(t),
		enricher: &fakeEnricher{},
		memory:   &fakeMemory{},
		mailer:   &fakeMailer{},
		poster:   &fakePoster{},
	}
	h.p = New(cfg, Components{
		Collector: &fakeCollector{articles: []*article.Article{{Link: "https://example.com/a"}}},
		Selector:  &fakeSelector{res: res},
		Enricher:  h.enricher,
		Composer:  &fakeComposer{err: composeErr},
		Memory:    h.memory,
		Mailer:    h.mailer,
		Poster:    h.poster,
		Reports:   h.db,
	})
	h.p.now = func() time.Time { return day }
	return h
}

func selected() *selection.Result {
	return &selection.Result{
		Articles: []*article.Article{
			{Link: "https://example.com/a", Summary: "feed summary", Metrics: &article.Metrics{FinalScore: 8}},
			{Link: article.FallbackBaseURL + "/x/61/1", Metrics: &article.Metrics{FinalScore: 6}},
		},
		Counts: selection.Counts{Selected: 1, Fallbacks: 1},
	}
}

func TestRunDelivers(t *testing.T) {
	h := newHarness(t, selected(), nil)
	r := h.p.Run(context.Background(), theme, day, Options{})

	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Steps) != 6 {
		t.Errorf("expected 6 steps, got %d", len(r.Steps))
	}
	if _, err := os.Stat(r.ArchivePath); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	if h.mailer.sent != 1 || h.poster.posts != 1 {
		t.Errorf("expected email and post, got %d/%d", h.mailer.sent, h.poster.posts)
	}
	if len(h.memory.stored) != 1 || h.memory.stored[0] != "https://example.com/a" {
		t.Errorf("only real articles should be remembered, got %v", h.memory.stored)
	}
	if h.enricher.record == nil || !*h.enricher.record {
		t.Error("refresher should be recorded outside test mode")
	}

	reports, err := h.db.RecentRunReports(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Selected != 1 || reports[0].Fallbacks != 1 || reports[0].ArchivePath != r.ArchivePath {
		t.Errorf("unexpected reports %+v", reports)
	}
}

func TestRunTestModeSendsNothing(t *testing.T) {
	h := newHarness(t, selected(), nil)
	r := h.p.Run(context.Background(), theme, day, Options{Test: true})

	if r.ArchivePath == "" {
		t.Error("test mode should still archive")
	}
	if h.mailer.sent != 0 || h.poster.posts != 0 {
		t.Error("test mode should not deliver")
	}
	if len(h.memory.stored) != 0 {
		t.Error("test mode should not remember")
	}
	if h.enricher.record == nil || *h.enricher.record {
		t.Error("test mode should not record refresher history")
	}
	reports, _ := h.db.RecentRunReports(context.Background(), 5)
	if len(reports) != 1 || !reports[0].TestMode {
		t.Errorf("expected a test-mode report, got %+v", reports)
	}
}

func TestRunEmptySelection(t *testing.T) {
	res := &selection.Result{Empty: selection.StageRelevance, Reason: "no articles passed the relevance gate"}
	h := newHarness(t, res, nil)
	r := h.p.Run(context.Background(), theme, day, Options{})

	if !r.Empty() {
		t.Fatal("expected empty result")
	}
	if r.Digest != nil || r.ArchivePath != "" {
		t.Error("empty runs should not compose or archive")
	}
	if h.enricher.record != nil {
		t.Error("enrich should not run")
	}
	reports, _ := h.db.RecentRunReports(context.Background(), 5)
	if len(reports) != 1 || reports[0].EmptyStage != "relevance" {
		t.Errorf("expected empty-stage report, got %+v", reports)
	}
}

func TestRunComposeError(t *testing.T) {
	h := newHarness(t, selected(), errors.New("template broke"))
	r := h.p.Run(context.Background(), theme, day, Options{})
	if r.Err() == nil {
		t.Fatal("expected error")
	}
	if h.mailer.sent != 0 {
		t.Error("nothing should be sent after a compose failure")
	}
}

func TestPosterFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t, selected(), nil)
	h.poster.err = errors.New("401")
	r := h.p.Run(context.Background(), theme, day, Options{})
	if err := r.Err(); err != nil {
		t.Errorf("delivery failures should be logged, got %v", err)
	}
	if h.mailer.sent != 1 {
		t.Error("email should still be sent")
	}
}

func TestRememberUsesFeedSummary(t *testing.T) {
	h := newHarness(t, selected(), nil)
	r := h.p.Run(context.Background(), theme, day, Options{})
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.memory.summaries) != 1 || h.memory.summaries[0] != "feed summary" {
		t.Errorf("memory should embed the feed summary, got %v", h.memory.summaries)
	}
	if r.Steps[2].Name != "Remember" || r.Steps[3].Name != "Enrich" {
		t.Errorf("unexpected step order %s, %s", r.Steps[2].Name, r.Steps[3].Name)
	}
}
