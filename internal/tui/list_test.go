package tui

import (
	"reflect"
	"testing"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/consolidate"
	"github.com/lotas/fensterordnung/internal/types"
)

func reviewTabs() []types.Tab {
	return []types.Tab{
		{ID: 1, WindowID: 1, URL: "https://go.dev/doc"},
		{ID: 2, WindowID: 2, URL: "https://go.dev/doc"},
		{ID: 3, WindowID: 1, URL: "https://github.com/a"},
		{ID: 4, WindowID: 1, URL: "https://github.com/b"},
		{ID: 5, WindowID: 1, URL: "https://github.com/c"},
		{ID: 6, WindowID: 2, URL: "https://github.com/d"},
	}
}

func newReviewList() ListModel {
	tabs := reviewTabs()
	dupes := analyzer.FindDuplicates(tabs, types.Normal, true)
	plan := consolidate.Plan(tabs, types.Mapping{}, types.Mapping{}, 3)
	return NewListModel(dupes, plan)
}

func kinds(rows []Row) []RowKind {
	var out []RowKind
	for _, r := range rows {
		out = append(out, r.Kind)
	}
	return out
}

func TestListRows(t *testing.T) {
	m := newReviewList()
	want := []RowKind{
		RowSection, RowGroup, RowTab, RowTab, // duplicates: header, keeper, closable
		RowSection, RowSuggestion, RowTab, // github.com stray
	}
	if got := kinds(m.Rows); !reflect.DeepEqual(got, want) {
		t.Fatalf("row kinds = %v, want %v", got, want)
	}
	if !m.Rows[2].Keeper || m.Rows[2].Tab.ID != 2 {
		t.Errorf("keeper row = %+v, want tab 2", m.Rows[2])
	}
	if m.Rows[3].Keeper || m.Rows[3].Tab.ID != 1 {
		t.Errorf("closable row = %+v, want tab 1", m.Rows[3])
	}
}

func TestListSelectable(t *testing.T) {
	m := newReviewList()
	want := []bool{false, false, false, true, false, true, false}
	for i, r := range m.Rows {
		if r.Selectable() != want[i] {
			t.Errorf("row %d (kind %d) selectable = %v, want %v", i, r.Kind, r.Selectable(), want[i])
		}
	}
}

func TestListToggleAndSelection(t *testing.T) {
	m := newReviewList()

	// Keeper rows ignore toggles.
	m.Cursor = 2
	m.Toggle()
	if len(m.CloseTabs) != 0 {
		t.Errorf("keeper was selected: %v", m.CloseTabs)
	}

	m.Cursor = 3
	m.Toggle()
	if got := m.SelectedCloseIDs(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("SelectedCloseIDs = %v, want [1]", got)
	}
	m.Toggle()
	if len(m.CloseTabs) != 0 {
		t.Errorf("second toggle should clear, got %v", m.CloseTabs)
	}

	m.Cursor = 5
	m.Toggle()
	moves := m.SelectedMoves()
	if len(moves) != 1 || moves[0].Key != "github.com" {
		t.Errorf("SelectedMoves = %+v", moves)
	}

	m.ClearSelection()
	if len(m.CloseTabs)+len(m.Moves) != 0 {
		t.Error("ClearSelection left selections")
	}
}

func TestListFallsBackToCursor(t *testing.T) {
	m := newReviewList()
	m.Cursor = 3
	if got := m.SelectedCloseIDs(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("close fallback = %v, want [1]", got)
	}
	// A stray tab row belongs to its suggestion.
	m.Cursor = 6
	if got := m.SelectedMoves(); len(got) != 1 || got[0].TargetWindow != 1 {
		t.Errorf("move fallback = %+v", got)
	}
	m.Cursor = 0
	if len(m.SelectedCloseIDs()) != 0 || len(m.SelectedMoves()) != 0 {
		t.Error("section row should select nothing")
	}
}

func TestListSetDataDropsStaleSelections(t *testing.T) {
	m := newReviewList()
	m.SelectAllClosable()
	m.Moves["github.com"] = true
	m.Cursor = len(m.Rows) - 1

	m.SetData(types.DuplicateResult{}, nil)
	if len(m.CloseTabs) != 0 || len(m.Moves) != 0 {
		t.Errorf("selections survived: %v %v", m.CloseTabs, m.Moves)
	}
	if m.Cursor != len(m.Rows)-1 {
		t.Errorf("cursor = %d, want clamped to %d", m.Cursor, len(m.Rows)-1)
	}
}

func TestListScroll(t *testing.T) {
	m := newReviewList()
	m.Height = 2
	for i := 0; i < 4; i++ {
		m.MoveDown()
	}
	if m.Cursor != 4 || m.Offset != 3 {
		t.Errorf("cursor=%d offset=%d, want 4 and 3", m.Cursor, m.Offset)
	}
	for i := 0; i < 10; i++ {
		m.MoveUp()
	}
	if m.Cursor != 0 || m.Offset != 0 {
		t.Errorf("cursor=%d offset=%d, want 0 and 0", m.Cursor, m.Offset)
	}
}
