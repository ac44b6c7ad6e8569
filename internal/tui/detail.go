package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/types"
)

// DetailModel shows information about the row under the cursor.
type DetailModel struct {
	Width  int
	Height int
	Match  types.MatchConfig
	Now    func() time.Time
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle()
)

func (m DetailModel) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// View renders details for row; nil renders nothing.
func (m DetailModel) View(row *Row) string {
	if row == nil {
		return ""
	}
	var out string
	switch row.Kind {
	case RowGroup:
		out = m.viewGroup(row.Group)
	case RowSuggestion:
		out = m.viewSuggestion(row.Suggestion)
	case RowTab:
		out = m.viewTab(row)
	}
	return m.clip(out)
}

func (m DetailModel) field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + "\n")
	// Wrap long values
	w := m.Width - 2
	if w < 10 {
		w = 10
	}
	for len(value) > w {
		b.WriteString(valueStyle.Render(value[:w]) + "\n")
		value = value[w:]
	}
	b.WriteString(valueStyle.Render(value) + "\n\n")
}

func (m DetailModel) viewTab(row *Row) string {
	tab := row.Tab
	var b strings.Builder

	title := tab.Title
	if title == "" {
		title = "(untitled)"
	}
	m.field(&b, "Title", title)
	m.field(&b, "URL", tab.URL)
	if key, ok := analyzer.TabKey(*tab, m.Match); ok {
		m.field(&b, "Match key", strings.ReplaceAll(key, "\x1f", " | "))
	}
	m.field(&b, "Window", fmt.Sprintf("%d", tab.WindowID))
	if !tab.LastAccessed.IsZero() {
		m.field(&b, "Last Visited", age(m.now(), tab.LastAccessed))
	}

	switch {
	case row.Keeper:
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true).Render("Kept") + "\n")
	case row.Group != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).
			Render(fmt.Sprintf("Duplicate of tab %d", row.Group.Keeper.ID)) + "\n")
	case row.Suggestion != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true).
			Render(fmt.Sprintf("Move to window %d", row.Suggestion.TargetWindow)) + "\n")
	}
	return b.String()
}

func (m DetailModel) viewGroup(g *types.DuplicateGroup) string {
	var b strings.Builder
	m.field(&b, "Duplicate group", g.Keeper.URL)
	m.field(&b, "Tabs", fmt.Sprintf("%d (%d closable)", len(g.Tabs), len(g.Closable)))
	m.field(&b, "Keeper", fmt.Sprintf("tab %d in window %d", g.Keeper.ID, g.Keeper.WindowID))
	return b.String()
}

func (m DetailModel) viewSuggestion(s *types.Suggestion) string {
	var b strings.Builder
	m.field(&b, "Key", s.Key)
	m.field(&b, "Tier", s.Tier.String())
	m.field(&b, "Target window", fmt.Sprintf("%d", s.TargetWindow))

	from := make(map[int]int)
	var order []int
	for _, t := range s.Tabs {
		if from[t.WindowID] == 0 {
			order = append(order, t.WindowID)
		}
		from[t.WindowID]++
	}
	var parts []string
	for _, w := range order {
		parts = append(parts, fmt.Sprintf("window %d (%d)", w, from[w]))
	}
	m.field(&b, "Strays from", strings.Join(parts, ", "))
	return b.String()
}

func (m DetailModel) clip(content string) string {
	if m.Height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) > m.Height {
		lines = lines[:m.Height]
	}
	return strings.Join(lines, "\n")
}

func age(now, t time.Time) string {
	d := now.Sub(t)
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%d days ago", days)
	}
	if hours := int(d.Hours()); hours > 0 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	return "just now"
}
