package analyzer

import "github.com/lotas/fensterordnung/internal/types"

func ComputeStats(snap *types.Snapshot, dupes types.DuplicateResult, suggestions []types.Suggestion) types.Stats {
	stats := types.Stats{
		TotalTabs:       len(snap.Tabs),
		TotalWindows:    len(snap.Windows),
		DuplicateGroups: len(dupes.Groups),
		DuplicateTabs:   dupes.TotalDuplicates,
		Suggestions:     len(suggestions),
	}
	if stats.TotalWindows == 0 {
		seen := make(map[int]bool)
		for _, tab := range snap.Tabs {
			seen[tab.WindowID] = true
		}
		stats.TotalWindows = len(seen)
	}
	for _, tab := range snap.Tabs {
		if tab.Pinned {
			stats.PinnedTabs++
		}
	}
	for _, s := range suggestions {
		stats.StrayTabs += s.Impact
	}
	return stats
}
