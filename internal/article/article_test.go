package article

import "testing"

func scored(link string, score float64, published string) *Article {
	return &Article{Link: link, Title: link, Published: published, Metrics: &Metrics{FinalScore: score}}
}

func TestRankByScoreThenPublished(t *testing.T) {
	articles := []*Article{
		scored("https://a.com", 7.0, "2026-02-01T10:00:00Z"),
		scored("https://b.com", 8.5, "2026-02-01T09:00:00Z"),
		scored("https://c.com", 7.0, "2026-02-02T10:00:00Z"),
		scored("https://d.com", 9.0, "2026-01-30T10:00:00Z"),
	}
	Rank(articles)

	want := []string{"https://d.com", "https://b.com", "https://c.com", "https://a.com"}
	for i, w := range want {
		if articles[i].Link != w {
			t.Errorf("position %d: expected %s, got %s", i, w, articles[i].Link)
		}
	}
}

func TestRankTieBreaksOnLink(t *testing.T) {
	a := scored("https://b.com", 7.0, "2026-02-01T10:00:00Z")
	b := scored("https://a.com", 7.0, "2026-02-01T10:00:00Z")
	articles := []*Article{a, b}
	Rank(articles)
	if articles[0] != b {
		t.Errorf("expected link order tie break, got %s first", articles[0].Link)
	}
}

func TestDedupeCaseInsensitive(t *testing.T) {
	articles := []*Article{
		{Link: "https://Example.com/Post", Title: "first"},
		{Link: "  https://example.com/post ", Title: "second"},
		{Link: "https://example.com/other", Title: "third"},
	}
	out := Dedupe(articles)
	if len(out) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(out))
	}
	if out[0].Title != "first" {
		t.Errorf("expected first occurrence to win, got %q", out[0].Title)
	}
}

func TestPublishedTimeFormats(t *testing.T) {
	for _, p := range []string{"2026-02-01T10:00:00Z", "2026-02-01T10:00:00+02:00", "2026-02-01"} {
		a := &Article{Published: p}
		if a.PublishedTime().IsZero() {
			t.Errorf("expected %q to parse", p)
		}
	}
	a := &Article{Published: "yesterday"}
	if !a.PublishedTime().IsZero() {
		t.Error("expected zero time for unparseable date")
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := "héllo"
	got := Truncate(s, 2)
	if got != "h" {
		t.Errorf("expected %q, got %q", "h", got)
	}
	if Truncate("short", 10) != "short" {
		t.Error("expected short string unchanged")
	}
}

func TestKnown(t *testing.T) {
	if !Known(Research) || !Known(Irrelevant) {
		t.Error("expected fixed labels to be known")
	}
	if Known(Category("Sports")) {
		t.Error("expected unknown label")
	}
}
