package consolidate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/server"
	"github.com/lotas/fensterordnung/internal/types"
)

func ids(tabs []types.Tab) []int {
	out := make([]int, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, t.ID)
	}
	return out
}

func TestPlanTiers(t *testing.T) {
	domains := types.NewDomainMapping()
	domains.Add(1, "github.com")
	keywords := types.NewKeywordMapping()
	keywords.Add(2, "Docs")

	tabs := []types.Tab{
		{ID: 1, WindowID: 2, URL: "https://github.com/a"},
		{ID: 2, WindowID: 1, URL: "https://github.com/b"},
		{ID: 3, WindowID: 3, URL: "https://docs.python.org/3/", Title: "Python Docs"},
		{ID: 4, WindowID: 3, URL: "https://github.com/org/docs"}, // tier 1 claims it first
		{ID: 5, WindowID: 3, URL: "https://example.com/1"},
		{ID: 6, WindowID: 3, URL: "https://example.com/2"},
		{ID: 7, WindowID: 3, URL: "https://www.example.com/3"},
		{ID: 8, WindowID: 1, URL: "https://example.com/4"},
		{ID: 9, WindowID: 1, URL: "https://example.com/pinned", Pinned: true},
		{ID: 10, WindowID: 1, URL: "about:blank"},
		{ID: 11, WindowID: 2, URL: "https://docs.example.org", Title: "handbook"}, // already in its keyword window
	}

	got := Plan(tabs, domains, keywords, 3)
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3: %+v", len(got), got)
	}

	want := []struct {
		key    string
		tier   types.Tier
		target int
		ids    []int
	}{
		{"github.com", types.TierAssigned, 1, []int{1, 4}},
		{"Docs", types.TierKeyword, 2, []int{3}},
		{"example.com", types.TierUnassigned, 3, []int{8}},
	}
	for i, w := range want {
		s := got[i]
		if s.Key != w.key || s.Tier != w.tier || s.TargetWindow != w.target {
			t.Errorf("suggestion %d: got %s/%s/w%d, want %s/%s/w%d", i, s.Key, s.Tier, s.TargetWindow, w.key, w.tier, w.target)
		}
		if !reflect.DeepEqual(ids(s.Tabs), w.ids) {
			t.Errorf("suggestion %d tabs: got %v, want %v", i, ids(s.Tabs), w.ids)
		}
		if s.Impact != len(w.ids) {
			t.Errorf("suggestion %d impact: got %d, want %d", i, s.Impact, len(w.ids))
		}
	}
}

func TestPlanThreshold(t *testing.T) {
	tabs := []types.Tab{
		{ID: 1, WindowID: 1, URL: "https://foo.com/a"},
		{ID: 2, WindowID: 1, URL: "https://foo.com/b"},
		{ID: 3, WindowID: 2, URL: "https://foo.com/c"},
	}
	if got := Plan(tabs, types.Mapping{}, types.Mapping{}, 3); len(got) != 0 {
		t.Errorf("2 tabs in largest window with threshold 3: got %+v", got)
	}

	tabs = append(tabs, types.Tab{ID: 4, WindowID: 1, URL: "https://foo.com/d"})
	got := Plan(tabs, types.Mapping{}, types.Mapping{}, 3)
	if len(got) != 1 {
		t.Fatalf("3 tabs in largest window: got %d suggestions, want 1", len(got))
	}
	if got[0].TargetWindow != 1 || !reflect.DeepEqual(ids(got[0].Tabs), []int{3}) {
		t.Errorf("got %+v", got[0])
	}
}

func TestPlanThresholdIgnoredForAssigned(t *testing.T) {
	domains := types.NewDomainMapping()
	domains.Add(1, "foo.com")
	tabs := []types.Tab{{ID: 1, WindowID: 2, URL: "https://foo.com"}}

	got := Plan(tabs, domains, types.Mapping{}, 100)
	if len(got) != 1 || got[0].Tier != types.TierAssigned {
		t.Errorf("got %+v, want one assigned suggestion", got)
	}
}

func TestPlanHomeWindowTieBreak(t *testing.T) {
	tabs := []types.Tab{
		{ID: 1, WindowID: 5, URL: "https://a.com/1"},
		{ID: 2, WindowID: 5, URL: "https://a.com/2"},
		{ID: 3, WindowID: 2, URL: "https://a.com/3"},
		{ID: 4, WindowID: 2, URL: "https://a.com/4"},
	}
	got := Plan(tabs, types.Mapping{}, types.Mapping{}, 2)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if got[0].TargetWindow != 2 {
		t.Errorf("home window: got %d, want 2 (lowest id on tie)", got[0].TargetWindow)
	}
	if !reflect.DeepEqual(ids(got[0].Tabs), []int{1, 2}) {
		t.Errorf("strays: got %v, want [1 2]", ids(got[0].Tabs))
	}
}

func TestPlanUnassignedOrdering(t *testing.T) {
	tabs := []types.Tab{
		// b.com: home w1, 1 stray
		{ID: 1, WindowID: 1, URL: "https://b.com"},
		{ID: 2, WindowID: 2, URL: "https://b.com"},
		// c.com: home w1, 2 strays
		{ID: 3, WindowID: 1, URL: "https://c.com"},
		{ID: 4, WindowID: 1, URL: "https://c.com"},
		{ID: 5, WindowID: 1, URL: "https://c.com"},
		{ID: 6, WindowID: 2, URL: "https://c.com"},
		{ID: 7, WindowID: 3, URL: "https://c.com"},
		// a.com: tie, home w1, 1 stray
		{ID: 8, WindowID: 2, URL: "https://a.com"},
		{ID: 9, WindowID: 1, URL: "https://a.com"},
	}
	got := Plan(tabs, types.Mapping{}, types.Mapping{}, 1)

	var keys []string
	for _, s := range got {
		keys = append(keys, s.Key)
	}
	if !reflect.DeepEqual(keys, []string{"c.com", "a.com", "b.com"}) {
		t.Errorf("order: got %v, want [c.com a.com b.com]", keys)
	}
}

func TestPlanFirstAssignedWindowWins(t *testing.T) {
	domains := types.NewDomainMapping()
	domains.Add(1, "foo.com")
	domains.Add(2, "foo.com")
	tabs := []types.Tab{
		{ID: 1, WindowID: 1, URL: "https://foo.com/a"},
		{ID: 2, WindowID: 2, URL: "https://foo.com/b"},
	}
	got := Plan(tabs, domains, types.Mapping{}, 3)
	if len(got) != 1 || got[0].TargetWindow != 1 || !reflect.DeepEqual(ids(got[0].Tabs), []int{2}) {
		t.Errorf("got %+v, want tab 2 moved to window 1", got)
	}
}

func TestPlanNeverDoubleClaims(t *testing.T) {
	domains := types.NewDomainMapping()
	domains.Add(1, "github.com")
	domains.Add(2, "example.com")
	keywords := types.NewKeywordMapping()
	keywords.Add(3, "git")
	keywords.Add(4, "example")
	keywords.Add(4, "com")

	var tabs []types.Tab
	urls := []string{
		"https://github.com/x", "https://gitlab.com/y", "https://example.com/z",
		"https://example.org/", "https://news.com/", "https://news.com/a",
	}
	id := 1
	for w := 1; w <= 5; w++ {
		for _, u := range urls {
			tabs = append(tabs, types.Tab{ID: id, WindowID: w, URL: u})
			id++
		}
	}

	seen := make(map[int]bool)
	for _, s := range Plan(tabs, domains, keywords, 1) {
		for _, tab := range s.Tabs {
			if seen[tab.ID] {
				t.Errorf("tab %d appears in more than one suggestion", tab.ID)
			}
			seen[tab.ID] = true
			if tab.WindowID == s.TargetWindow {
				t.Errorf("tab %d already in target window %d", tab.ID, s.TargetWindow)
			}
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	if got := Plan(nil, types.Mapping{}, types.Mapping{}, 3); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestFormatDryRun(t *testing.T) {
	suggestions := []types.Suggestion{
		{Key: "github.com", Tier: types.TierAssigned, TargetWindow: 1, Impact: 1,
			Tabs: []types.Tab{{ID: 1, WindowID: 2, Title: "Go repo"}}},
		{Key: "example.com", Tier: types.TierUnassigned, TargetWindow: 3, Impact: 2,
			Tabs: []types.Tab{{ID: 2, WindowID: 1, URL: "https://example.com/a"}, {ID: 3, WindowID: 2, Title: "B"}}},
	}
	out := FormatDryRun(suggestions)
	for _, want := range []string{
		"Assigned domains (1):",
		"github.com → window 1 (1 tab)",
		"[w2] Go repo",
		"Unassigned domains (1):",
		"example.com → window 3 (2 tabs)",
		"[w1] https://example.com/a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Keywords") {
		t.Errorf("empty tier should be omitted:\n%s", out)
	}

	if got := FormatDryRun(nil); !strings.Contains(got, "Nothing to consolidate") {
		t.Errorf("empty plan: got %q", got)
	}
}

type fakeSender struct {
	sent []server.OutgoingMsg
	fail int // fail on this 1-based call; 0 = never
}

func (f *fakeSender) Send(msg server.OutgoingMsg) error {
	f.sent = append(f.sent, msg)
	if f.fail == len(f.sent) {
		return errors.New("connection closed")
	}
	return nil
}

func TestApply(t *testing.T) {
	suggestions := []types.Suggestion{
		{Key: "a.com", TargetWindow: 1, Impact: 2, Tabs: []types.Tab{{ID: 5}, {ID: 6}}},
		{Key: "b.com", TargetWindow: 2, Impact: 1, Tabs: []types.Tab{{ID: 7}}},
	}

	f := &fakeSender{}
	n, err := Apply(f, suggestions)
	if err != nil || n != 2 {
		t.Fatalf("Apply: n=%d err=%v", n, err)
	}
	if f.sent[0].Action != server.ActionMove || f.sent[0].WindowID != 1 || !reflect.DeepEqual(f.sent[0].TabIDs, []int{5, 6}) {
		t.Errorf("first command: got %+v", f.sent[0])
	}
	if f.sent[0].ID == "" || f.sent[0].ID == f.sent[1].ID {
		t.Errorf("command ids should be unique and non-empty: %q %q", f.sent[0].ID, f.sent[1].ID)
	}

	f = &fakeSender{fail: 1}
	n, err = Apply(f, suggestions)
	if err == nil || n != 0 {
		t.Errorf("expected failure on first send, got n=%d err=%v", n, err)
	}
}

func TestPlanAfterDroppingClosedWindow(t *testing.T) {
	domains := types.NewDomainMapping()
	domains.Add(99, "example.com")
	tabs := []types.Tab{
		{ID: 1, WindowID: 1, URL: "https://example.com/a"},
		{ID: 2, WindowID: 1, URL: "https://example.com/b"},
		{ID: 3, WindowID: 2, URL: "https://example.com/c"},
	}
	snap := &types.Snapshot{Tabs: tabs, Windows: []int{1, 2}}

	d, k, stale := assign.DropStale(domains, types.NewKeywordMapping(), snap.HasWindow)
	if !reflect.DeepEqual(stale, []int{99}) {
		t.Fatalf("stale: got %v, want [99]", stale)
	}
	got := Plan(tabs, d, k, 2)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got), got)
	}
	if got[0].Tier != types.TierUnassigned || got[0].TargetWindow != 1 {
		t.Errorf("got tier %v window %d, want unassigned into window 1", got[0].Tier, got[0].TargetWindow)
	}
	if !reflect.DeepEqual(ids(got[0].Tabs), []int{3}) {
		t.Errorf("strays: got %v, want [3]", ids(got[0].Tabs))
	}
}
