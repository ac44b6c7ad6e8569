// Package consolidate plans which stray tabs should move to which window.
package consolidate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/applog"
	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/server"
	"github.com/lotas/fensterordnung/internal/types"
)

// DefaultThreshold is the minimum number of tabs a home window must hold for
// an unassigned domain before the planner suggests consolidating it.
const DefaultThreshold = 3

type candidate struct {
	tab types.Tab
	key string // domain key
}

// Plan returns move suggestions ordered by tier: assigned domains first, then
// keywords, then unassigned domains whose home window holds at least
// threshold tabs. A tab is claimed by at most one suggestion.
func Plan(tabs []types.Tab, domains, keywords types.Mapping, threshold int) []types.Suggestion {
	if threshold < 1 {
		threshold = 1
	}

	var cands []candidate
	for _, tab := range tabs {
		if !assign.Eligible(tab) {
			continue
		}
		key := analyzer.DomainKey(tab.URL)
		if key == "" {
			continue
		}
		cands = append(cands, candidate{tab: tab, key: key})
	}

	claimed := make([]bool, len(cands))
	var out []types.Suggestion

	// Tier 1: assigned domains.
	handled := make(map[string]bool)
	for _, e := range domains.Entries() {
		for _, key := range e.Values {
			if handled[key] {
				continue
			}
			handled[key] = true
			var strays []types.Tab
			for i, c := range cands {
				if claimed[i] || c.key != key {
					continue
				}
				claimed[i] = true
				if c.tab.WindowID != e.WindowID {
					strays = append(strays, c.tab)
				}
			}
			out = appendSuggestion(out, key, types.TierAssigned, e.WindowID, strays)
		}
	}

	// Tier 2: keywords.
	for _, e := range keywords.Entries() {
		for _, kw := range e.Values {
			var strays []types.Tab
			for i, c := range cands {
				if claimed[i] || !assign.MatchesKeyword(c.tab, kw) {
					continue
				}
				claimed[i] = true
				if c.tab.WindowID != e.WindowID {
					strays = append(strays, c.tab)
				}
			}
			out = appendSuggestion(out, kw, types.TierKeyword, e.WindowID, strays)
		}
	}

	// Tier 3: unassigned domains, consolidated into their home window.
	byKey := make(map[string][]candidate)
	var keys []string
	for i, c := range cands {
		if claimed[i] {
			continue
		}
		if _, ok := byKey[c.key]; !ok {
			keys = append(keys, c.key)
		}
		byKey[c.key] = append(byKey[c.key], c)
	}

	var unassigned []types.Suggestion
	for _, key := range keys {
		group := byKey[key]
		home, count := homeWindow(group)
		if count < threshold {
			continue
		}
		var strays []types.Tab
		for _, c := range group {
			if c.tab.WindowID != home {
				strays = append(strays, c.tab)
			}
		}
		unassigned = appendSuggestion(unassigned, key, types.TierUnassigned, home, strays)
	}
	sort.SliceStable(unassigned, func(i, j int) bool {
		if unassigned[i].Impact != unassigned[j].Impact {
			return unassigned[i].Impact > unassigned[j].Impact
		}
		return unassigned[i].Key < unassigned[j].Key
	})

	return append(out, unassigned...)
}

func appendSuggestion(out []types.Suggestion, key string, tier types.Tier, target int, strays []types.Tab) []types.Suggestion {
	if len(strays) == 0 {
		return out
	}
	return append(out, types.Suggestion{
		Key:          key,
		Tier:         tier,
		TargetWindow: target,
		Tabs:         strays,
		Impact:       len(strays),
	})
}

// homeWindow returns the window holding the most tabs of the group; ties go
// to the lowest window id.
func homeWindow(group []candidate) (windowID, count int) {
	counts := make(map[int]int)
	for _, c := range group {
		counts[c.tab.WindowID]++
	}
	first := true
	for id, n := range counts {
		if first || n > count || (n == count && id < windowID) {
			windowID, count = id, n
			first = false
		}
	}
	return windowID, count
}

// FormatDryRun returns a human-readable summary of proposed moves.
func FormatDryRun(suggestions []types.Suggestion) string {
	var b strings.Builder

	tiers := []struct {
		tier types.Tier
		name string
	}{
		{types.TierAssigned, "Assigned domains"},
		{types.TierKeyword, "Keywords"},
		{types.TierUnassigned, "Unassigned domains"},
	}

	for _, tr := range tiers {
		var section []types.Suggestion
		for _, s := range suggestions {
			if s.Tier == tr.tier {
				section = append(section, s)
			}
		}
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", tr.name, len(section))
		for _, s := range section {
			noun := "tabs"
			if s.Impact == 1 {
				noun = "tab"
			}
			fmt.Fprintf(&b, "  %s → window %d (%d %s)\n", s.Key, s.TargetWindow, s.Impact, noun)
			for _, t := range s.Tabs {
				title := t.Title
				if title == "" {
					title = t.URL
				}
				fmt.Fprintf(&b, "    - [w%d] %s\n", t.WindowID, title)
			}
		}
	}

	if len(suggestions) == 0 {
		b.WriteString("Nothing to consolidate.\n")
	}
	return b.String()
}

// Sender delivers commands to the browser extension.
type Sender interface {
	Send(msg server.OutgoingMsg) error
}

// Apply sends one move command per suggestion. It stops at the first failed
// send and returns the number of suggestions applied.
func Apply(srv Sender, suggestions []types.Suggestion) (int, error) {
	applied := 0
	for _, s := range suggestions {
		err := srv.Send(server.OutgoingMsg{
			ID:       server.NewCommandID(),
			Action:   server.ActionMove,
			TabIDs:   s.TabIDs(),
			WindowID: s.TargetWindow,
		})
		if err != nil {
			applog.Error("consolidate.apply", err, "key", s.Key, "window", s.TargetWindow)
			return applied, fmt.Errorf("move %d tabs for %s to window %d: %w", s.Impact, s.Key, s.TargetWindow, err)
		}
		applog.Info("consolidate.apply", "key", s.Key, "window", s.TargetWindow, "tabs", s.Impact)
		applied++
	}
	return applied, nil
}
