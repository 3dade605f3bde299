package veto

import (
	"context"
	"errors"
	"testing"

	"github.com/TobiSchelling/AIDigest/internal/article"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func testArticle() *article.Article {
	return &article.Article{Link: "https://example.com/x", Title: "10 AI tools", Summary: "A listicle."}
}

func TestShouldReject(t *testing.T) {
	tests := []struct {
		name     string
		response string
		reject   bool
		waste    float64
	}{
		{"json high", `{"waste_score": 8, "reason": "listicle"}`, true, 8},
		{"json low", `{"waste_score": 2, "reason": "substantive"}`, false, 2},
		{"fenced json", "```json\n{\"waste_score\": 6.5, \"reason\": \"thin\"}\n```", true, 6.5},
		{"boundary kept", `{"waste_score": 5}`, false, 5},
		{"plain number", "7 - mostly marketing", true, 7},
		{"plain low", "Score: 3", false, 3},
		{"labelled in prose", "The waste_score: 8.5 because it is a press release", true, 8.5},
		{"clamped high", `{"waste_score": 15, "reason": "spam"}`, true, 10},
		{"clamped low", `{"waste_score": -2}`, false, 0},
		{"ratio", "8/10, thin marketing", true, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArticle()
			f := New(&mockProvider{response: tt.response}, DefaultThreshold)
			if got := f.ShouldReject(context.Background(), a, article.Research); got != tt.reject {
				t.Errorf("expected reject=%v, got %v", tt.reject, got)
			}
			if a.WasteScore == nil || *a.WasteScore != tt.waste {
				t.Errorf("expected waste %v, got %v", tt.waste, a.WasteScore)
			}
		})
	}
}

func TestFailsOpen(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
	}{
		{"call failure", &mockProvider{err: errors.New("timeout")}},
		{"unparseable", &mockProvider{response: "no opinion"}},
		{"template echo", &mockProvider{response: `{"waste_score": 0-10, "reason": "one short sentence"}`}},
		{"leading count", &mockProvider{response: "10 tools listed; waste 8"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArticle()
			if New(tt.provider, 0).ShouldReject(context.Background(), a, article.Research) {
				t.Error("expected no veto on failure")
			}
			if a.WasteScore != nil {
				t.Error("waste score should stay unset on failure")
			}
		})
	}
}

func TestNilProviderKeeps(t *testing.T) {
	if New(nil, 0).ShouldReject(context.Background(), testArticle(), article.Research) {
		t.Error("expected no veto without a provider")
	}
}

func TestCustomThreshold(t *testing.T) {
	a := testArticle()
	f := New(&mockProvider{response: `{"waste_score": 6}`}, 7)
	if f.ShouldReject(context.Background(), a, article.Research) {
		t.Error("6 should pass a threshold of 7")
	}
}

func TestParseWaste(t *testing.T) {
	tests := []struct {
		resp string
		want float64
		ok   bool
	}{
		{`{"waste_score": 4, "reason": "ok"}`, 4, true},
		{"7 - mostly marketing", 7, true},
		{"waste score = 6", 6, true},
		{`{"waste_score": 0-10}`, 0, false},
		{"score: 0 - 10", 0, false},
		{"10 tools listed; waste 8", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, _, ok := ParseWaste(tt.resp)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseWaste(%q) = %v, %v; want %v, %v", tt.resp, got, ok, tt.want, tt.ok)
		}
	}
}
