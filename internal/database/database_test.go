package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id, title, category string, sent time.Time) MemoryRecord {
	return MemoryRecord{
		ID:           id,
		URL:          "https://example.com/" + id,
		Title:        title,
		Category:     category,
		Source:       "Example",
		QualityScore: 7.5,
		SentDate:     sent,
		Embedding:    []float64{0.1, 0.2, 0.3},
	}
}

func TestInsertAndQueryMemoryRecords(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := db.InsertMemoryRecord(ctx, record("a", "Recent", "research", now.AddDate(0, 0, -5))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.InsertMemoryRecord(ctx, record("b", "Old", "research", now.AddDate(0, 0, -90))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := db.MemoryRecordsSince(ctx, now.AddDate(0, 0, -60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record in window, got %d", len(records))
	}
	r := records[0]
	if r.Title != "Recent" {
		t.Errorf("expected 'Recent', got %q", r.Title)
	}
	if len(r.Embedding) != 3 || r.Embedding[2] != 0.3 {
		t.Errorf("expected embedding round trip, got %v", r.Embedding)
	}
	if !r.SentDate.Equal(now.AddDate(0, 0, -5)) {
		t.Errorf("expected sent date round trip, got %v", r.SentDate)
	}
}

func TestMemoryRecordsSinceUsesUTC(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loc := time.FixedZone("UTC+5", 5*3600)
	sent := time.Date(2026, 3, 1, 3, 0, 0, 0, loc) // 2026-02-28T22:00Z

	db.InsertMemoryRecord(ctx, record("a", "Zoned", "research", sent))

	records, _ := db.MemoryRecordsSince(ctx, time.Date(2026, 2, 28, 21, 0, 0, 0, time.UTC))
	if len(records) != 1 {
		t.Errorf("expected zoned record inside window, got %d", len(records))
	}
}

func TestMemoryRecordsByCategory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	db.InsertMemoryRecord(ctx, record("a", "One", "research", now))
	db.InsertMemoryRecord(ctx, record("b", "Two", "business", now))
	db.InsertMemoryRecord(ctx, record("c", "Three", "research", now.AddDate(0, 0, -40)))

	records, err := db.MemoryRecordsByCategory(ctx, "research", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Title != "One" {
		t.Errorf("expected only 'One', got %+v", records)
	}

	n, err := db.CountMemoryRecords(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records, got %d", n)
	}
}

func TestDuplicateMemoryIDRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	db.InsertMemoryRecord(ctx, record("a", "One", "research", time.Now()))
	if err := db.InsertMemoryRecord(ctx, record("a", "Again", "research", time.Now())); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestRunReportLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.InsertRunReport(ctx, RunReport{
		Day: "monday", Category: "research", Fetched: 40, Categorized: 10,
		Unique: 9, Relevant: 7, Scored: 5, Vetoed: 1, Selected: 4, TestMode: true,
		ArchivePath: "/tmp/monday.html",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.InsertRunReport(ctx, RunReport{Day: "friday", Category: "ethics", Fetched: 12, EmptyStage: "relevance"})

	reports, err := db.RecentRunReports(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Day != "friday" || reports[0].EmptyStage != "relevance" {
		t.Errorf("expected newest friday report first, got %+v", reports[0])
	}
	if !reports[1].TestMode || reports[1].ArchivePath != "/tmp/monday.html" {
		t.Errorf("expected test mode and archive path, got %+v", reports[1])
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.RunReports != 2 || stats.EmptyRuns != 1 {
		t.Errorf("expected 2 runs / 1 empty, got %d/%d", stats.RunReports, stats.EmptyRuns)
	}
	if stats.LastRunAt == "" {
		t.Error("expected last run timestamp")
	}
}

func TestRefresherHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	db.RecordRefresherShown(ctx, "research", "Attention", day)
	db.RecordRefresherShown(ctx, "research", "Attention", day)
	db.RecordRefresherShown(ctx, "research", "Dropout", day.AddDate(0, 0, -45))
	db.RecordRefresherShown(ctx, "business", "Moats", day)

	topics, err := db.RefresherTopicsShownSince(ctx, "research", day.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 1 || topics[0] != "Attention" {
		t.Errorf("expected only Attention, got %v", topics)
	}
}
