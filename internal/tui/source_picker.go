package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/fensterordnung/internal/types"
)

// Source is where the review screen reads tabs from.
type Source struct {
	Label   string
	Detail  string         // dimmed second column
	Profile *types.Profile // nil for live mode
	IsLive  bool
}

// SourcePicker is an overlay for choosing the live extension or a profile's
// session file.
type SourcePicker struct {
	Sources []Source
	Cursor  int
	Width   int
	Height  int
}

// NewSourcePicker lists live mode first, then profiles with the default one
// preselected.
func NewSourcePicker(profiles []types.Profile, port int) SourcePicker {
	sources := []Source{{
		Label:  "Live",
		Detail: fmt.Sprintf("extension on :%d", port),
		IsLive: true,
	}}
	cursor := 0
	for i := range profiles {
		p := &profiles[i]
		detail := "session file"
		if p.IsDefault {
			detail += ", default"
			if cursor == 0 {
				cursor = len(sources)
			}
		}
		sources = append(sources, Source{Label: p.Name, Detail: detail, Profile: p})
	}
	return SourcePicker{Sources: sources, Cursor: cursor}
}

func (m *SourcePicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *SourcePicker) MoveDown() {
	if m.Cursor < len(m.Sources)-1 {
		m.Cursor++
	}
}

func (m SourcePicker) Selected() Source {
	return m.Sources[m.Cursor]
}

// SelectByNumber moves the cursor to the n-th source, counting from 1.
func (m *SourcePicker) SelectByNumber(n int) bool {
	if n < 1 || n > len(m.Sources) {
		return false
	}
	m.Cursor = n - 1
	return true
}

func (m SourcePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	labelWidth := 0
	for _, src := range m.Sources {
		labelWidth = max(labelWidth, lipgloss.Width(src.Label))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Read tabs from:") + "\n\n")
	for i, src := range m.Sources {
		label := fmt.Sprintf("%d  %-*s", i+1, labelWidth, src.Label)
		if i == m.Cursor {
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(normalStyle.Render(label))
		}
		b.WriteString("  " + dimStyle.Render(src.Detail) + "\n")
	}
	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · 1-9 quick select · esc back"))

	return boxStyle.Render(b.String())
}
