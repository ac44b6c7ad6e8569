package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/types"
)

// Report is everything one analysis pass produced.
type Report struct {
	Snapshot    *types.Snapshot
	Match       types.MatchConfig
	Duplicates  types.DuplicateResult
	Suggestions []types.Suggestion
	GeneratedAt time.Time
}

func (r Report) profileName() string {
	if r.Snapshot == nil || r.Snapshot.Profile.Name == "" {
		return "live"
	}
	return r.Snapshot.Profile.Name
}

type jsonExport struct {
	Profile     string           `json:"profile"`
	Source      string           `json:"source,omitempty"`
	ExportedAt  time.Time        `json:"exported_at"`
	Match       string           `json:"match"`
	Stats       jsonStats        `json:"stats"`
	Duplicates  []jsonDupeGroup  `json:"duplicates"`
	Suggestions []jsonSuggestion `json:"suggestions"`
}

type jsonStats struct {
	Tabs            int `json:"tabs"`
	Windows         int `json:"windows"`
	Pinned          int `json:"pinned"`
	DuplicateGroups int `json:"duplicate_groups"`
	DuplicateTabs   int `json:"duplicate_tabs"`
	Suggestions     int `json:"suggestions"`
	StrayTabs       int `json:"stray_tabs"`
}

type jsonDupeGroup struct {
	Keeper   jsonTab   `json:"keeper"`
	Closable []jsonTab `json:"closable"`
}

type jsonSuggestion struct {
	Key          string    `json:"key"`
	Tier         string    `json:"tier"`
	TargetWindow int       `json:"target_window"`
	Tabs         []jsonTab `json:"tabs"`
}

type jsonTab struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Domain       string     `json:"domain,omitempty"`
	WindowID     int        `json:"window_id"`
	Pinned       bool       `json:"pinned,omitempty"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

func toJSONTab(t types.Tab) jsonTab {
	jt := jsonTab{
		ID:       t.ID,
		Title:    t.Title,
		URL:      t.URL,
		Domain:   analyzer.DomainKey(t.URL),
		WindowID: t.WindowID,
		Pinned:   t.Pinned,
	}
	if !t.LastAccessed.IsZero() {
		la := t.LastAccessed
		jt.LastAccessed = &la
	}
	return jt
}

func toJSONTabs(tabs []types.Tab) []jsonTab {
	out := make([]jsonTab, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, toJSONTab(t))
	}
	return out
}

// JSON formats a report as an indented JSON document.
func JSON(r Report) (string, error) {
	stats := analyzer.ComputeStats(snapshotOrEmpty(r.Snapshot), r.Duplicates, r.Suggestions)
	out := jsonExport{
		Profile:    r.profileName(),
		ExportedAt: r.GeneratedAt,
		Match:      r.Match.OrDefault().String(),
		Stats: jsonStats{
			Tabs:            stats.TotalTabs,
			Windows:         stats.TotalWindows,
			Pinned:          stats.PinnedTabs,
			DuplicateGroups: stats.DuplicateGroups,
			DuplicateTabs:   stats.DuplicateTabs,
			Suggestions:     stats.Suggestions,
			StrayTabs:       stats.StrayTabs,
		},
		Duplicates:  make([]jsonDupeGroup, 0, len(r.Duplicates.Groups)),
		Suggestions: make([]jsonSuggestion, 0, len(r.Suggestions)),
	}
	if r.Snapshot != nil {
		out.Source = r.Snapshot.Source
	}

	for _, g := range r.Duplicates.Groups {
		out.Duplicates = append(out.Duplicates, jsonDupeGroup{
			Keeper:   toJSONTab(g.Keeper),
			Closable: toJSONTabs(g.Closable),
		})
	}
	for _, s := range r.Suggestions {
		out.Suggestions = append(out.Suggestions, jsonSuggestion{
			Key:          s.Key,
			Tier:         s.Tier.String(),
			TargetWindow: s.TargetWindow,
			Tabs:         toJSONTabs(s.Tabs),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func snapshotOrEmpty(s *types.Snapshot) *types.Snapshot {
	if s == nil {
		return &types.Snapshot{}
	}
	return s
}
