package vectorstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/AIDigest/internal/memory"
)

func TestLiteral(t *testing.T) {
	if got := Literal([]float64{0.5, -1, 2.25}); got != "[0.5,-1,2.25]" {
		t.Errorf("unexpected literal %q", got)
	}
	if got := Literal(nil); got != "[]" {
		t.Errorf("expected empty literal, got %q", got)
	}
}

func TestNearestQueryShape(t *testing.T) {
	query, args, err := psql.Select("id").
		Column("1 - (embedding <=> ?::vector) AS similarity", Literal([]float64{1, 0})).
		From(table).
		Where("sent_date >= ?", time.Unix(0, 0)).
		OrderBy("similarity DESC").
		Limit(5).
		ToSql()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, "$1::vector") || !strings.Contains(query, "sent_date >= $2") {
		t.Errorf("expected dollar placeholders, got %q", query)
	}
	if len(args) != 2 || args[0] != "[1,0]" {
		t.Errorf("unexpected args %v", args)
	}
}

// TestPgVectorRoundTrip runs against a live database when
// AIDIGEST_TEST_PGVECTOR_DSN is set.
func TestPgVectorRoundTrip(t *testing.T) {
	dsn := os.Getenv("AIDIGEST_TEST_PGVECTOR_DSN")
	if dsn == "" {
		t.Skip("AIDIGEST_TEST_PGVECTOR_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	rec := memory.Record{
		ID:       uuid.NewString(),
		URL:      "https://example.com/pg",
		Title:    "pgvector round trip",
		Category: "test",
		SentDate: time.Now(),
	}
	if err := s.Insert(ctx, rec, []float64{1, 0, 0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	neighbors, err := s.Nearest(ctx, []float64{1, 0, 0}, time.Now().Add(-time.Hour), 1)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Similarity < 0.99 {
		t.Errorf("expected matching neighbor, got %+v", neighbors)
	}
	s.db.ExecContext(ctx, "DELETE FROM memory_records WHERE id = $1", rec.ID)
}
