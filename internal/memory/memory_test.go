package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/AIDigest/internal/article"
	"github.com/TobiSchelling/AIDigest/internal/database"
)

// mockEmbedder maps texts to fixed vectors by keyword.
type mockEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{0, 0, 1}
		for k, v := range m.vectors {
			if strings.Contains(t, k) {
				out[i] = v
			}
		}
	}
	return out, nil
}

type unconfiguredEmbedder struct{ mockEmbedder }

func (unconfiguredEmbedder) IsConfigured() bool { return false }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var (
	llamaVec   = []float64{1, 0, 0}
	llamaAlike = []float64{0.95, 0.05, 0}
	unrelated  = []float64{0, 1, 0}
)

func newTestMemory(t *testing.T, now time.Time) (*Memory, *mockEmbedder) {
	t.Helper()
	emb := &mockEmbedder{vectors: map[string][]float64{
		"Llama 4":    llamaVec,
		"Llama Four": llamaAlike,
		"Regulation": unrelated,
	}}
	m := New(context.Background(), NewSQLiteStore(openTestDB(t)), emb, Options{Now: clock(now)})
	if !m.Enabled() {
		t.Fatal("expected memory to be enabled")
	}
	return m, emb
}

func TestIsDuplicateWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, _ := newTestMemory(t, now.AddDate(0, 0, -10))
	ctx := context.Background()

	m.Store(ctx, &article.Article{Title: "Meta releases Llama 4", Link: "https://a.com/1"}, article.Research, 8.0)

	m.opts.Now = clock(now)
	dup, reason := m.IsDuplicate(ctx, &article.Article{Title: "Llama Four is out", Link: "https://b.com/2"})
	if !dup {
		t.Fatal("expected duplicate")
	}
	if !strings.Contains(reason, "'Meta releases Llama 4'") || !strings.Contains(reason, "10 days ago") {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestIsDuplicateOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m, _ := newTestMemory(t, now.AddDate(0, 0, -61))
	ctx := context.Background()

	m.Store(ctx, &article.Article{Title: "Meta releases Llama 4"}, article.Research, 8.0)

	m.opts.Now = clock(now)
	if dup, _ := m.IsDuplicate(ctx, &article.Article{Title: "Meta releases Llama 4"}); dup {
		t.Error("expected records older than the lookback window to be ignored")
	}
}

func TestIsDuplicateBelowThreshold(t *testing.T) {
	now := time.Now()
	m, _ := newTestMemory(t, now)
	ctx := context.Background()

	m.Store(ctx, &article.Article{Title: "Meta releases Llama 4"}, article.Research, 8.0)
	if dup, _ := m.IsDuplicate(ctx, &article.Article{Title: "EU Regulation passes"}); dup {
		t.Error("expected unrelated article not to be a duplicate")
	}
}

func TestDisabledWithoutEmbedder(t *testing.T) {
	m := New(context.Background(), NewSQLiteStore(openTestDB(t)), nil, Options{})
	if m.Enabled() {
		t.Fatal("expected disabled memory")
	}
	ctx := context.Background()
	m.Store(ctx, &article.Article{Title: "x"}, article.Research, 7)
	if dup, reason := m.IsDuplicate(ctx, &article.Article{Title: "x"}); dup || reason != "" {
		t.Error("expected disabled memory to report not duplicate")
	}
	if m.Stats(ctx).Enabled {
		t.Error("expected stats to report disabled")
	}
}

func TestDisabledWhenEmbedderUnconfigured(t *testing.T) {
	m := New(context.Background(), NewSQLiteStore(openTestDB(t)), &unconfiguredEmbedder{}, Options{})
	if m.Enabled() {
		t.Error("expected disabled memory for unconfigured embedder")
	}
}

type brokenStore struct{ Store }

func (brokenStore) Count(context.Context) (int, error) { return 0, errors.New("connection refused") }

func TestDisabledWhenStoreUnavailable(t *testing.T) {
	m := New(context.Background(), brokenStore{}, &mockEmbedder{}, Options{})
	if m.Enabled() {
		t.Error("expected disabled memory for unreachable store")
	}
}

func TestNilMemoryIsDisabled(t *testing.T) {
	var m *Memory
	if m.Enabled() {
		t.Error("expected nil memory to be disabled")
	}
	if dup, _ := m.IsDuplicate(context.Background(), &article.Article{}); dup {
		t.Error("expected nil memory to report not duplicate")
	}
}

func TestEmbeddingFailureFailsOpen(t *testing.T) {
	m, emb := newTestMemory(t, time.Now())
	emb.err = errors.New("rate limited")
	if dup, _ := m.IsDuplicate(context.Background(), &article.Article{Title: "Meta releases Llama 4"}); dup {
		t.Error("expected embedding failure to report not duplicate")
	}
}

func TestTopicCoverage(t *testing.T) {
	now := time.Now()
	m, _ := newTestMemory(t, now)
	ctx := context.Background()

	m.Store(ctx, &article.Article{Title: "Agents learn planning", Link: "1"}, article.Research, 7)
	m.Store(ctx, &article.Article{Title: "Planning with agents at scale", Link: "2"}, article.Research, 7)
	m.Store(ctx, &article.Article{Title: "Planning startups raise", Link: "3"}, article.Business, 7)

	topics := m.TopicCoverage(ctx, article.Research, 30)
	if len(topics) == 0 || topics[0].Topic != "agents" || topics[0].Count != 2 {
		t.Fatalf("unexpected topics %+v", topics)
	}
	for _, tc := range topics {
		if len(tc.Topic) <= 4 {
			t.Errorf("expected short words skipped, got %q", tc.Topic)
		}
		if tc.Topic == "startups" {
			t.Error("expected other categories excluded")
		}
	}
	if topics[1].Topic != "planning" || topics[1].Count != 2 {
		t.Errorf("expected planning second, got %+v", topics[1])
	}
}

func TestStats(t *testing.T) {
	m, _ := newTestMemory(t, time.Now())
	ctx := context.Background()
	m.Store(ctx, &article.Article{Title: "One"}, article.Research, 7)

	s := m.Stats(ctx)
	if !s.Enabled || s.TotalArticles != 1 {
		t.Errorf("expected 1 article, got %+v", s)
	}
	if s.LookbackDays != 60 || s.SimilarityThreshold != 0.85 {
		t.Errorf("unexpected defaults %+v", s)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{1}); got != 0 {
		t.Errorf("expected 0 for length mismatch, got %v", got)
	}
}
