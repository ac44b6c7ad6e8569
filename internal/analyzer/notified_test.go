package analyzer

import (
	"reflect"
	"sync"
	"testing"

	"github.com/lotas/fensterordnung/internal/types"
)

func TestMemoryNotifier(t *testing.T) {
	var n MemoryNotifier // zero value is usable

	if n.IsNotified(1) {
		t.Error("empty notifier reports id 1")
	}
	n.MarkNotified(1)
	n.MarkNotified(1)
	if !n.IsNotified(1) {
		t.Error("id 1 should be notified after mark")
	}
	if n.Len() != 1 {
		t.Errorf("len: got %d, want 1", n.Len())
	}
	n.ClearNotified(1)
	if n.IsNotified(1) {
		t.Error("id 1 should be cleared")
	}
	n.ClearNotified(42) // clearing an unknown id is a no-op
}

func TestMemoryNotifierConcurrent(t *testing.T) {
	n := NewMemoryNotifier()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			n.MarkNotified(id)
			n.IsNotified(id)
		}(i)
	}
	wg.Wait()
	if n.Len() != 50 {
		t.Errorf("len: got %d, want 50", n.Len())
	}
}

func TestNewlySeen(t *testing.T) {
	n := NewMemoryNotifier()
	tabs := []types.Tab{
		{ID: 1, URL: "https://example.com/a"},
		{ID: 2, URL: "https://example.com/a"},
		{ID: 3, URL: "https://example.com/b"},
	}

	first := NewlySeen(FindDuplicates(tabs, types.Normal, true), n)
	if !reflect.DeepEqual(first, []int{1, 2}) {
		t.Errorf("first pass: got %v, want [1 2]", first)
	}

	// Unchanged snapshot: nothing new to report.
	second := NewlySeen(FindDuplicates(tabs, types.Normal, true), n)
	if len(second) != 0 {
		t.Errorf("second pass: got %v, want none", second)
	}

	// Tab 4 duplicates tab 3; tab 2 closes and reopens later as a new duplicate.
	tabs = append(tabs, types.Tab{ID: 4, URL: "https://example.com/b"})
	n.ClearNotified(2)
	third := NewlySeen(FindDuplicates(tabs, types.Normal, true), n)
	if !reflect.DeepEqual(third, []int{2, 3, 4}) {
		t.Errorf("third pass: got %v, want [2 3 4]", third)
	}
}
