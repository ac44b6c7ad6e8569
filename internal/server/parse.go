package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/fensterordnung/internal/types"
)

type wireTab struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	WindowID     int    `json:"windowId"`
	Index        int    `json:"index"`
	Pinned       bool   `json:"pinned"`
	Active       bool   `json:"active"`
	LastAccessed int64  `json:"lastAccessed"`
}

func (wt wireTab) tab() types.Tab {
	t := types.Tab{
		ID:       wt.ID,
		URL:      wt.URL,
		Title:    wt.Title,
		WindowID: wt.WindowID,
		Index:    wt.Index,
		Pinned:   wt.Pinned,
		Active:   wt.Active,
	}
	if wt.LastAccessed > 0 {
		t.LastAccessed = time.UnixMilli(wt.LastAccessed)
	}
	return t
}

// ParseSnapshot converts an IncomingMsg of type "snapshot" into a Snapshot.
// When the message carries no window list, windows are taken from the tabs
// in order of first appearance.
func ParseSnapshot(msg IncomingMsg) (*types.Snapshot, error) {
	var tabs []wireTab
	if len(msg.Tabs) > 0 {
		if err := json.Unmarshal(msg.Tabs, &tabs); err != nil {
			return nil, fmt.Errorf("parse tabs: %w", err)
		}
	}

	snap := &types.Snapshot{
		Source:  "live",
		TakenAt: time.Now(),
		Windows: append([]int(nil), msg.Windows...),
	}
	seen := make(map[int]bool, len(msg.Windows))
	for _, id := range msg.Windows {
		seen[id] = true
	}
	for _, wt := range tabs {
		snap.Tabs = append(snap.Tabs, wt.tab())
		if !seen[wt.WindowID] {
			seen[wt.WindowID] = true
			snap.Windows = append(snap.Windows, wt.WindowID)
		}
	}
	return snap, nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (types.Tab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return types.Tab{}, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), nil
}
