package analyzer

import (
	"github.com/lotas/fensterordnung/internal/types"
)

// Recency reports whether tab a was opened before tab b.
type Recency func(a, b types.Tab) bool

// ByID orders tabs by host-assigned id. Browsers hand out tab ids from a
// monotonic counter, so a larger id means a more recently opened tab. No
// creation timestamp is exposed by the host; this is the proxy.
func ByID(a, b types.Tab) bool { return a.ID < b.ID }

// ByLastAccessed orders tabs by last access time, then by id. A tab with no
// recorded access sorts before every accessed one.
func ByLastAccessed(a, b types.Tab) bool {
	if a.LastAccessed.Equal(b.LastAccessed) {
		return ByID(a, b)
	}
	return a.LastAccessed.Before(b.LastAccessed)
}

// RecencyFor picks the ordering for snap. Session files number tabs by
// position rather than by opening order, so their tabs are ordered by last
// access instead.
func RecencyFor(snap *types.Snapshot) Recency {
	if snap != nil && snap.Source == "session" {
		return ByLastAccessed
	}
	return ByID
}

// DuplicateOption tweaks FindDuplicates.
type DuplicateOption func(*dupeOptions)

type dupeOptions struct {
	recency Recency
}

// WithRecency replaces the default ByID ordering used to pick keepers.
func WithRecency(r Recency) DuplicateOption {
	return func(o *dupeOptions) {
		if r != nil {
			o.recency = r
		}
	}
}

// FindDuplicates partitions tabs into equivalence classes under cfg and picks
// a keeper per class: the newest tab when keepNewest is set, else the oldest.
// Tabs with malformed URLs are never grouped.
func FindDuplicates(tabs []types.Tab, cfg types.MatchConfig, keepNewest bool, opts ...DuplicateOption) types.DuplicateResult {
	o := dupeOptions{recency: ByID}
	for _, opt := range opts {
		opt(&o)
	}

	groups := make(map[string][]int)
	var order []string
	for i, tab := range tabs {
		key, ok := TabKey(tab, cfg)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var result types.DuplicateResult
	for _, key := range order {
		indices := groups[key]
		if len(indices) < 2 {
			continue
		}
		g := types.DuplicateGroup{Key: key, Tabs: make([]types.Tab, 0, len(indices))}
		keeper := 0
		for n, i := range indices {
			g.Tabs = append(g.Tabs, tabs[i])
			if n == 0 {
				continue
			}
			cur := g.Tabs[keeper]
			if keepNewest && o.recency(cur, tabs[i]) {
				keeper = n
			} else if !keepNewest && o.recency(tabs[i], cur) {
				keeper = n
			}
		}
		g.Keeper = g.Tabs[keeper]
		for n, t := range g.Tabs {
			if n != keeper {
				g.Closable = append(g.Closable, t)
			}
		}
		result.TotalDuplicates += len(g.Closable)
		result.Groups = append(result.Groups, g)
	}
	return result
}
