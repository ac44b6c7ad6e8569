package export

import (
	"strings"
	"testing"
	"time"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/consolidate"
	"github.com/lotas/fensterordnung/internal/types"
)

func sampleReport(now time.Time) Report {
	snap := &types.Snapshot{
		Profile: types.Profile{Name: "default"},
		Windows: []int{1, 2},
		Tabs: []types.Tab{
			{ID: 1, WindowID: 1, Title: "Go docs", URL: "https://go.dev/doc", LastAccessed: now.Add(-3 * 24 * time.Hour)},
			{ID: 2, WindowID: 2, Title: "Go docs again", URL: "https://go.dev/doc"},
			{ID: 3, WindowID: 1, URL: "https://github.com/a"},
			{ID: 4, WindowID: 1, URL: "https://github.com/b"},
			{ID: 5, WindowID: 1, URL: "https://github.com/c"},
			{ID: 6, WindowID: 2, Title: "Stray", URL: "https://github.com/d", LastAccessed: now.Add(-5 * time.Hour)},
		},
	}
	return Report{
		Snapshot:    snap,
		Match:       types.Normal,
		Duplicates:  analyzer.FindDuplicates(snap.Tabs, types.Normal, true),
		Suggestions: consolidate.Plan(snap.Tabs, types.Mapping{}, types.Mapping{}, 3),
		GeneratedAt: now,
	}
}

func TestMarkdown(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	result := Markdown(sampleReport(now))

	for _, want := range []string{
		"# Tab report: default",
		"6 tabs in 2 windows",
		"## Duplicates (1 group, 1 closable)",
		"- keep [Go docs again](https://go.dev/doc) in window 2",
		"  - close [Go docs](https://go.dev/doc) in window 1, 3d ago",
		"## Suggested moves (1 tab)",
		"### github.com: window 1 (unassigned)",
		"- [Stray](https://github.com/d) in window 2, 5h ago",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q, got:\n%s", want, result)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	result := Markdown(Report{GeneratedAt: time.Now()})
	if !strings.Contains(result, "# Tab report: live") {
		t.Errorf("missing header, got:\n%s", result)
	}
	if !strings.Contains(result, "No duplicates.") || !strings.Contains(result, "Nothing to consolidate.") {
		t.Errorf("empty sections not reported, got:\n%s", result)
	}
}

func TestMarkdown_TitleFallbackToURL(t *testing.T) {
	now := time.Now()
	r := Report{
		GeneratedAt: now,
		Duplicates: types.DuplicateResult{
			TotalDuplicates: 1,
			Groups: []types.DuplicateGroup{{
				Keeper:   types.Tab{ID: 2, URL: "https://no-title.com", WindowID: 1},
				Closable: []types.Tab{{ID: 1, URL: "https://no-title.com", WindowID: 1}},
			}},
		},
	}
	result := Markdown(r)
	if !strings.Contains(result, "[https://no-title.com](https://no-title.com)") {
		t.Errorf("expected URL as title fallback, got:\n%s", result)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{15 * time.Minute, "15m ago"},
		{5 * time.Hour, "5h ago"},
		{3 * 24 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		if got := relativeTime(now, now.Add(-tt.ago)); got != tt.want {
			t.Errorf("relativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
