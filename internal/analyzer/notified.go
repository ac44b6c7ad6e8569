package analyzer

import (
	"sync"

	"github.com/lotas/fensterordnung/internal/types"
)

// Notifier tracks which tab ids have already been reported as duplicates.
type Notifier interface {
	MarkNotified(tabID int)
	ClearNotified(tabID int)
	IsNotified(tabID int) bool
}

// MemoryNotifier is an in-process Notifier. The zero value is ready to use
// and safe for concurrent callers.
type MemoryNotifier struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{ids: make(map[int]struct{})}
}

func (n *MemoryNotifier) MarkNotified(tabID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ids == nil {
		n.ids = make(map[int]struct{})
	}
	n.ids[tabID] = struct{}{}
}

func (n *MemoryNotifier) ClearNotified(tabID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.ids, tabID)
}

func (n *MemoryNotifier) IsNotified(tabID int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.ids[tabID]
	return ok
}

// Len returns the number of tracked ids.
func (n *MemoryNotifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}

// NewlySeen returns the ids of tabs that participate in a duplicate group and
// have not been notified since they were last cleared, and marks them.
func NewlySeen(result types.DuplicateResult, n Notifier) []int {
	var fresh []int
	for _, g := range result.Groups {
		for _, t := range g.Tabs {
			if n.IsNotified(t.ID) {
				continue
			}
			n.MarkNotified(t.ID)
			fresh = append(fresh, t.ID)
		}
	}
	return fresh
}
