// Package watch keeps a live browser organized: it moves new and navigated
// tabs into their assigned windows and reports newly found duplicates.
package watch

import (
	"context"
	"fmt"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/applog"
	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/server"
	"github.com/lotas/fensterordnung/internal/types"
)

// Sender delivers commands to the extension.
type Sender interface {
	Send(msg server.OutgoingMsg) error
}

// Assignments is where the watcher reads window assignments and drops the
// ones pointing at closed windows.
type Assignments interface {
	Load() (domains, keywords types.Mapping, err error)
	Prune(exists func(windowID int) bool) ([]int, error)
}

// retainer is implemented by notifiers that can forget ids of closed tabs
// in bulk.
type retainer interface {
	Retain(live []int) (int, error)
}

type Options struct {
	Match      types.MatchConfig
	KeepNewest bool
	Organize   bool // move tabs into assigned windows
	Notify     bool // report new duplicates
}

// Watcher holds the last known browser state. It is driven from one
// goroutine; Handle is not safe for concurrent use.
type Watcher struct {
	srv      Sender
	store    Assignments
	notifier analyzer.Notifier
	opts     Options

	tabs    []types.Tab // browser order, updated in place
	windows map[int]bool
	synced  bool // a full snapshot has been seen; windows is complete
}

func New(srv Sender, store Assignments, notifier analyzer.Notifier, opts Options) *Watcher {
	if notifier == nil {
		notifier = analyzer.NewMemoryNotifier()
	}
	return &Watcher{
		srv:      srv,
		store:    store,
		notifier: notifier,
		opts:     opts,
		windows:  make(map[int]bool),
	}
}

// Run handles messages until ctx is done or msgs is closed. Failures of
// single messages are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, msgs <-chan server.IncomingMsg) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.Handle(msg); err != nil {
				applog.Error("watch.handle", err, "type", msg.Type)
			}
		}
	}
}

// Tabs returns a copy of the current tab list.
func (w *Watcher) Tabs() []types.Tab {
	return append([]types.Tab(nil), w.tabs...)
}

// exists reports whether a window is open. Until the first snapshot every
// window is assumed to exist.
func (w *Watcher) exists(windowID int) bool {
	return !w.synced || w.windows[windowID]
}

// Handle applies one extension message.
func (w *Watcher) Handle(msg server.IncomingMsg) error {
	switch msg.Type {
	case server.TypeSnapshot:
		snap, err := server.ParseSnapshot(msg)
		if err != nil {
			return err
		}
		return w.onSnapshot(snap)

	case server.TypeTabCreated, server.TypeTabUpdated:
		tab, err := server.ParseTab(msg.Tab)
		if err != nil {
			return err
		}
		return w.onTab(tab)

	case server.TypeTabRemoved:
		w.removeTab(msg.TabID)
		return nil

	case server.TypeWindowRemoved:
		return w.onWindowRemoved(msg.WindowID)

	case server.TypeResponse:
		if msg.OK != nil && !*msg.OK {
			applog.Warn("watch.command_failed", "id", msg.ID, "error", msg.Error)
		}
		return nil
	}
	applog.Warn("watch.unknown", "type", msg.Type)
	return nil
}

func (w *Watcher) onSnapshot(snap *types.Snapshot) error {
	w.tabs = append(w.tabs[:0], snap.Tabs...)
	w.windows = make(map[int]bool, len(snap.Windows))
	for _, id := range snap.Windows {
		w.windows[id] = true
	}
	w.synced = true
	applog.Info("watch.snapshot", "tabs", len(w.tabs), "windows", len(w.windows))

	if r, ok := w.notifier.(retainer); ok {
		ids := make([]int, 0, len(w.tabs))
		for _, t := range w.tabs {
			ids = append(ids, t.ID)
		}
		if _, err := r.Retain(ids); err != nil {
			applog.Error("watch.retain", err)
		}
	}

	w.prune()
	return w.notifyDuplicates()
}

func (w *Watcher) onTab(tab types.Tab) error {
	w.windows[tab.WindowID] = true
	w.upsertTab(tab)

	if w.opts.Organize && assign.Eligible(tab) {
		if err := w.organize(tab); err != nil {
			return err
		}
	}
	return w.notifyDuplicates()
}

func (w *Watcher) organize(tab types.Tab) error {
	domains, keywords, err := w.store.Load()
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	res := assign.ResolveTarget(tab, domains, keywords, w.exists)
	switch res.Outcome {
	case assign.OutcomeNone:
		return nil
	case assign.OutcomeStale:
		applog.Warn("watch.stale", "tab", tab.ID, "window", res.WindowID)
		w.prune()
		return nil
	}
	if res.InPlace(tab) {
		return nil
	}

	err = w.srv.Send(server.OutgoingMsg{
		ID:       server.NewCommandID(),
		Action:   server.ActionMove,
		TabIDs:   []int{tab.ID},
		WindowID: res.WindowID,
	})
	if err != nil {
		return fmt.Errorf("move tab %d to window %d: %w", tab.ID, res.WindowID, err)
	}
	applog.Info("watch.move", "tab", tab.ID, "from", tab.WindowID, "to", res.WindowID)
	tab.WindowID = res.WindowID
	w.upsertTab(tab)
	return nil
}

func (w *Watcher) prune() {
	if !w.synced {
		return
	}
	pruned, err := w.store.Prune(w.exists)
	if err != nil {
		applog.Error("watch.prune", err)
	}
	if len(pruned) > 0 {
		applog.Info("watch.prune", "windows", fmt.Sprint(pruned))
	}
}

func (w *Watcher) notifyDuplicates() error {
	if !w.opts.Notify {
		return nil
	}
	dupes := analyzer.FindDuplicates(w.tabs, w.opts.Match, w.opts.KeepNewest)
	fresh := analyzer.NewlySeen(dupes, w.notifier)
	if len(fresh) == 0 {
		return nil
	}
	err := w.srv.Send(server.OutgoingMsg{
		ID:      server.NewCommandID(),
		Action:  server.ActionNotify,
		TabIDs:  fresh,
		Title:   "Duplicate tabs",
		Message: fmt.Sprintf("%d duplicate tabs across %d groups", dupes.TotalDuplicates, len(dupes.Groups)),
	})
	if err != nil {
		// Let the next pass report them again.
		for _, id := range fresh {
			w.notifier.ClearNotified(id)
		}
		return fmt.Errorf("notify duplicates: %w", err)
	}
	applog.Info("watch.notify", "tabs", len(fresh))
	return nil
}

func (w *Watcher) onWindowRemoved(windowID int) error {
	delete(w.windows, windowID)
	kept := w.tabs[:0]
	for _, t := range w.tabs {
		if t.WindowID == windowID {
			w.notifier.ClearNotified(t.ID)
			continue
		}
		kept = append(kept, t)
	}
	w.tabs = kept
	w.prune()
	return nil
}

func (w *Watcher) upsertTab(tab types.Tab) {
	for i := range w.tabs {
		if w.tabs[i].ID == tab.ID {
			w.tabs[i] = tab
			return
		}
	}
	w.tabs = append(w.tabs, tab)
}

func (w *Watcher) removeTab(tabID int) {
	for i := range w.tabs {
		if w.tabs[i].ID == tabID {
			w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
			break
		}
	}
	w.notifier.ClearNotified(tabID)
}
