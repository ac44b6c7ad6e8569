package analyzer

import (
	"testing"

	"github.com/lotas/fensterordnung/internal/types"
)

func TestComputeStats(t *testing.T) {
	snap := &types.Snapshot{
		Tabs: []types.Tab{
			{ID: 1, WindowID: 1, Pinned: true},
			{ID: 2, WindowID: 1},
			{ID: 3, WindowID: 2},
			{ID: 4, WindowID: 3},
		},
	}
	dupes := types.DuplicateResult{
		Groups:          []types.DuplicateGroup{{Key: "a"}, {Key: "b"}},
		TotalDuplicates: 3,
	}
	suggestions := []types.Suggestion{{Impact: 2}, {Impact: 1}}

	stats := ComputeStats(snap, dupes, suggestions)
	if stats.TotalTabs != 4 {
		t.Errorf("total tabs: got %d, want 4", stats.TotalTabs)
	}
	if stats.TotalWindows != 3 {
		t.Errorf("total windows: got %d, want 3", stats.TotalWindows)
	}
	if stats.PinnedTabs != 1 {
		t.Errorf("pinned: got %d, want 1", stats.PinnedTabs)
	}
	if stats.DuplicateGroups != 2 {
		t.Errorf("duplicate groups: got %d, want 2", stats.DuplicateGroups)
	}
	if stats.DuplicateTabs != 3 {
		t.Errorf("duplicate tabs: got %d, want 3", stats.DuplicateTabs)
	}
	if stats.StrayTabs != 3 {
		t.Errorf("stray tabs: got %d, want 3", stats.StrayTabs)
	}
}

func TestComputeStatsUsesSnapshotWindows(t *testing.T) {
	snap := &types.Snapshot{Windows: []int{7, 8}}
	stats := ComputeStats(snap, types.DuplicateResult{}, nil)
	if stats.TotalWindows != 2 {
		t.Errorf("total windows: got %d, want 2", stats.TotalWindows)
	}
}
