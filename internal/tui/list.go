package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/fensterordnung/internal/types"
)

// RowKind tells the list how to render and act on a row.
type RowKind int

const (
	RowSection RowKind = iota
	RowGroup
	RowSuggestion
	RowTab
)

// Row is one visible line of the review list.
type Row struct {
	Kind       RowKind
	Label      string                // section title
	Group      *types.DuplicateGroup // set for group headers and their tabs
	Suggestion *types.Suggestion     // set for suggestion headers and their tabs
	Tab        *types.Tab
	Keeper     bool
}

// Selectable reports whether the row can be marked for a batch action.
func (r Row) Selectable() bool {
	switch r.Kind {
	case RowSuggestion:
		return true
	case RowTab:
		return r.Group != nil && !r.Keeper
	}
	return false
}

// ListModel shows duplicate groups followed by consolidation suggestions.
type ListModel struct {
	Rows   []Row
	Cursor int
	Offset int
	Width  int
	Height int

	CloseTabs map[int]bool    // closable tab id -> selected
	Moves     map[string]bool // suggestion key -> selected
}

func NewListModel(dupes types.DuplicateResult, suggestions []types.Suggestion) ListModel {
	m := ListModel{
		CloseTabs: make(map[int]bool),
		Moves:     make(map[string]bool),
	}
	m.SetData(dupes, suggestions)
	return m
}

// SetData rebuilds the rows. Selections that still exist are kept and the
// cursor is clamped.
func (m *ListModel) SetData(dupes types.DuplicateResult, suggestions []types.Suggestion) {
	var rows []Row
	rows = append(rows, Row{
		Kind:  RowSection,
		Label: fmt.Sprintf("Duplicates (%d closable)", dupes.TotalDuplicates),
	})
	liveTabs := make(map[int]bool)
	for i := range dupes.Groups {
		g := &dupes.Groups[i]
		rows = append(rows, Row{Kind: RowGroup, Group: g})
		rows = append(rows, Row{Kind: RowTab, Group: g, Tab: &g.Keeper, Keeper: true})
		for j := range g.Closable {
			rows = append(rows, Row{Kind: RowTab, Group: g, Tab: &g.Closable[j]})
			liveTabs[g.Closable[j].ID] = true
		}
	}

	rows = append(rows, Row{
		Kind:  RowSection,
		Label: fmt.Sprintf("Suggested moves (%d)", len(suggestions)),
	})
	liveKeys := make(map[string]bool)
	for i := range suggestions {
		s := &suggestions[i]
		rows = append(rows, Row{Kind: RowSuggestion, Suggestion: s})
		for j := range s.Tabs {
			rows = append(rows, Row{Kind: RowTab, Suggestion: s, Tab: &s.Tabs[j]})
		}
		liveKeys[s.Key] = true
	}

	for id := range m.CloseTabs {
		if !liveTabs[id] {
			delete(m.CloseTabs, id)
		}
	}
	for key := range m.Moves {
		if !liveKeys[key] {
			delete(m.Moves, key)
		}
	}

	m.Rows = rows
	if m.Cursor >= len(rows) {
		m.Cursor = len(rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// Current returns the row under the cursor, or nil.
func (m ListModel) Current() *Row {
	if m.Cursor >= 0 && m.Cursor < len(m.Rows) {
		return &m.Rows[m.Cursor]
	}
	return nil
}

func (m *ListModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

func (m *ListModel) MoveDown() {
	if m.Cursor < len(m.Rows)-1 {
		m.Cursor++
	}
	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 1
	}
	if m.Cursor >= m.Offset+visibleRows {
		m.Offset = m.Cursor - visibleRows + 1
	}
}

// Toggle flips the selection of the current row. Rows that cannot be
// selected are ignored.
func (m *ListModel) Toggle() {
	row := m.Current()
	if row == nil || !row.Selectable() {
		return
	}
	if row.Kind == RowSuggestion {
		key := row.Suggestion.Key
		if m.Moves[key] {
			delete(m.Moves, key)
		} else {
			m.Moves[key] = true
		}
		return
	}
	id := row.Tab.ID
	if m.CloseTabs[id] {
		delete(m.CloseTabs, id)
	} else {
		m.CloseTabs[id] = true
	}
}

// SelectAllClosable marks every closable duplicate.
func (m *ListModel) SelectAllClosable() {
	for _, r := range m.Rows {
		if r.Kind == RowTab && r.Selectable() {
			m.CloseTabs[r.Tab.ID] = true
		}
	}
}

func (m *ListModel) ClearSelection() {
	m.CloseTabs = make(map[int]bool)
	m.Moves = make(map[string]bool)
}

// SelectedCloseIDs returns selected closable tabs in list order. With no
// selection it falls back to the closable tab under the cursor.
func (m ListModel) SelectedCloseIDs() []int {
	var ids []int
	for _, r := range m.Rows {
		if r.Kind == RowTab && r.Selectable() && m.CloseTabs[r.Tab.ID] {
			ids = append(ids, r.Tab.ID)
		}
	}
	if len(ids) == 0 {
		if row := m.Current(); row != nil && row.Kind == RowTab && row.Selectable() {
			ids = append(ids, row.Tab.ID)
		}
	}
	return ids
}

// SelectedMoves returns selected suggestions in list order. With no
// selection it falls back to the suggestion the cursor is in.
func (m ListModel) SelectedMoves() []types.Suggestion {
	var out []types.Suggestion
	for _, r := range m.Rows {
		if r.Kind == RowSuggestion && m.Moves[r.Suggestion.Key] {
			out = append(out, *r.Suggestion)
		}
	}
	if len(out) == 0 {
		if row := m.Current(); row != nil && row.Suggestion != nil {
			out = append(out, *row.Suggestion)
		}
	}
	return out
}

// View renders the visible slice of rows.
func (m ListModel) View() string {
	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}
	end := m.Offset + visibleRows
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	headerStyle := lipgloss.NewStyle().Bold(true)
	keepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	closeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder
	for i := m.Offset; i < end; i++ {
		row := m.Rows[i]
		var line string
		switch row.Kind {
		case RowSection:
			line = sectionStyle.Render(row.Label)
		case RowGroup:
			line = headerStyle.Render(fmt.Sprintf("  %s (%d tabs)", row.Group.Keeper.URL, len(row.Group.Tabs)))
		case RowSuggestion:
			s := row.Suggestion
			mark := "  "
			if m.Moves[s.Key] {
				mark = "▸ "
			}
			line = mark + headerStyle.Render(fmt.Sprintf("%s → window %d", s.Key, s.TargetWindow)) +
				dimStyle.Render(fmt.Sprintf(" %s, %d tab(s)", s.Tier, s.Impact))
		case RowTab:
			line = m.tabLine(row, keepStyle, closeStyle, dimStyle)
		}

		if i == m.Cursor {
			for lipgloss.Width(line) < m.Width {
				line += " "
			}
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m ListModel) tabLine(row Row, keepStyle, closeStyle, dimStyle lipgloss.Style) string {
	prefix := "      "
	if m.CloseTabs[row.Tab.ID] && row.Selectable() {
		prefix = "    ▸ "
	}
	var marker string
	switch {
	case row.Keeper:
		marker = keepStyle.Render("keep ")
	case row.Group != nil:
		marker = closeStyle.Render("dup  ")
	default:
		marker = dimStyle.Render(fmt.Sprintf("w%-3d ", row.Tab.WindowID))
	}

	text := row.Tab.Title
	if text == "" {
		text = row.Tab.URL
	}
	maxLen := m.Width - len(prefix) - 5 - 2
	if maxLen < 10 {
		maxLen = 10
	}
	if r := []rune(text); len(r) > maxLen {
		text = string(r[:maxLen-1]) + "…"
	}
	return prefix + marker + text
}
