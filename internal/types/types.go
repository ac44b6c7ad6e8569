package types

import "time"

// Tab is a read-only snapshot of a single browser tab.
type Tab struct {
	ID           int // host-assigned, stable for the tab's lifetime
	URL          string
	Title        string
	WindowID     int
	Pinned       bool
	Active       bool
	Index        int // position within its window
	LastAccessed time.Time
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// Snapshot is the view of all open tabs the engine runs against.
// It is acquired once per pass and never mutated afterwards.
type Snapshot struct {
	Tabs    []Tab
	Windows []int // window ids in host order
	Profile Profile
	Source  string // "live" or "session"
	TakenAt time.Time
}

// HasWindow reports whether id is one of the snapshot's windows.
func (s *Snapshot) HasWindow(id int) bool {
	for _, w := range s.Windows {
		if w == id {
			return true
		}
	}
	return false
}

// DuplicateGroup is a set of equivalent tabs with one keeper.
type DuplicateGroup struct {
	Key      string
	Tabs     []Tab // input order
	Keeper   Tab
	Closable []Tab
}

// DuplicateResult is the output of one duplicate-detection pass.
type DuplicateResult struct {
	Groups          []DuplicateGroup
	TotalDuplicates int
}

// ClosableIDs returns the ids of every tab that can be closed.
func (r DuplicateResult) ClosableIDs() []int {
	var ids []int
	for _, g := range r.Groups {
		for _, t := range g.Closable {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Tier ranks consolidation suggestions.
type Tier int

const (
	TierAssigned Tier = iota + 1
	TierKeyword
	TierUnassigned
)

func (t Tier) String() string {
	switch t {
	case TierAssigned:
		return "assigned"
	case TierKeyword:
		return "keyword"
	case TierUnassigned:
		return "unassigned"
	default:
		return "unknown"
	}
}

// Suggestion proposes moving stray tabs into a target window.
type Suggestion struct {
	Key          string // domain key or keyword label
	Tier         Tier
	TargetWindow int
	Tabs         []Tab
	Impact       int // number of stray tabs
}

// TabIDs returns the ids of the suggestion's stray tabs.
func (s Suggestion) TabIDs() []int {
	ids := make([]int, 0, len(s.Tabs))
	for _, t := range s.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

// Stats holds aggregate statistics for a snapshot.
type Stats struct {
	TotalTabs       int
	TotalWindows    int
	PinnedTabs      int
	DuplicateGroups int
	DuplicateTabs   int
	Suggestions     int
	StrayTabs       int
}
