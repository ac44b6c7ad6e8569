package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/types"
)

// Markdown formats a report as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder
	now := r.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}
	stats := analyzer.ComputeStats(snapshotOrEmpty(r.Snapshot), r.Duplicates, r.Suggestions)

	fmt.Fprintf(&b, "# Tab report: %s\n", r.profileName())
	fmt.Fprintf(&b, "> Exported %s, %d tabs in %d windows, matching on %s\n",
		now.Format("2006-01-02 15:04"), stats.TotalTabs, stats.TotalWindows, r.Match.OrDefault())

	fmt.Fprintf(&b, "\n## Duplicates (%d %s, %d closable)\n", len(r.Duplicates.Groups),
		plural(len(r.Duplicates.Groups), "group", "groups"), r.Duplicates.TotalDuplicates)
	if len(r.Duplicates.Groups) == 0 {
		b.WriteString("\nNo duplicates.\n")
	}
	for _, g := range r.Duplicates.Groups {
		fmt.Fprintf(&b, "\n- keep %s\n", tabLine(g.Keeper, now))
		for _, t := range g.Closable {
			fmt.Fprintf(&b, "  - close %s\n", tabLine(t, now))
		}
	}

	fmt.Fprintf(&b, "\n## Suggested moves (%d %s)\n", stats.StrayTabs, plural(stats.StrayTabs, "tab", "tabs"))
	if len(r.Suggestions) == 0 {
		b.WriteString("\nNothing to consolidate.\n")
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(&b, "\n### %s: window %d (%s)\n\n", s.Key, s.TargetWindow, s.Tier)
		for _, t := range s.Tabs {
			fmt.Fprintf(&b, "- %s\n", tabLine(t, now))
		}
	}

	return b.String()
}

func tabLine(t types.Tab, now time.Time) string {
	title := t.Title
	if title == "" {
		title = t.URL
	}
	line := fmt.Sprintf("[%s](%s) in window %d", title, t.URL, t.WindowID)
	if !t.LastAccessed.IsZero() {
		line += ", " + relativeTime(now, t.LastAccessed)
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
