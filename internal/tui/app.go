// Package tui is the interactive review screen: duplicate groups and
// consolidation suggestions, with close and move actions in live mode.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/applog"
	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/consolidate"
	"github.com/lotas/fensterordnung/internal/firefox"
	"github.com/lotas/fensterordnung/internal/server"
	"github.com/lotas/fensterordnung/internal/types"
)

// --- Messages ---

type snapshotLoadedMsg struct {
	snap *types.Snapshot
	err  error
}

// SourceMode distinguishes live vs offline.
type SourceMode int

const (
	ModeOffline SourceMode = iota
	ModeLive
)

// Messages from the WebSocket server
type wsDisconnectedMsg struct{}
type wsSnapshotMsg struct{ snap *types.Snapshot }
type wsTabMsg struct{ tab types.Tab }
type wsTabRemovedMsg struct{ tabID int }
type wsWindowRemovedMsg struct{ windowID int }
type wsCmdResponseMsg struct {
	id    string
	ok    bool
	error string
}

// actionDoneMsg reports the result of a command sent to the extension.
type actionDoneMsg struct {
	action string
	count  int
	err    error
}

// --- Command helpers ---

func sendCmd(srv *server.Server, msg server.OutgoingMsg) tea.Cmd {
	return func() tea.Msg {
		msg.ID = server.NewCommandID()
		count := len(msg.TabIDs)
		if msg.TabID != 0 {
			count = 1
		}
		return actionDoneMsg{action: msg.Action, count: count, err: srv.Send(msg)}
	}
}

func applyMoves(srv *server.Server, suggestions []types.Suggestion) tea.Cmd {
	return func() tea.Msg {
		n, err := consolidate.Apply(srv, suggestions)
		return actionDoneMsg{action: server.ActionMove, count: n, err: err}
	}
}

// Options controls how the review screen analyzes a snapshot.
type Options struct {
	Match      types.MatchConfig
	KeepNewest bool
	Threshold  int
	// Assignments loads the stored window assignments. Nil means none.
	Assignments func() (domains, keywords types.Mapping, err error)
}

// --- Model ---

type Model struct {
	// Data
	profiles    []types.Profile
	profile     types.Profile
	snap        *types.Snapshot
	opts        Options
	dupes       types.DuplicateResult
	suggestions []types.Suggestion
	stats       types.Stats

	// UI state
	list       ListModel
	detail     DetailModel
	picker     SourcePicker
	showPicker bool
	loading    bool
	err        error
	status     string
	width      int
	height     int

	// Live mode
	mode      SourceMode
	server    *server.Server
	port      int
	serving   *bool // shared across model copies; the server starts once
	connected bool
}

func NewModel(profiles []types.Profile, opts Options, liveMode bool, srv *server.Server) Model {
	m := Model{
		profiles: profiles,
		opts:     opts,
		server:   srv,
		list:     NewListModel(types.DuplicateResult{}, nil),
		detail:   DetailModel{Match: opts.Match},
		serving:  new(bool),
	}
	if srv != nil {
		m.port = srv.Port()
	}
	if liveMode {
		m.mode = ModeLive
		m.loading = true
	} else if len(profiles) == 1 {
		m.mode = ModeOffline
		m.loading = true
	} else {
		m.showPicker = true
		m.picker = NewSourcePicker(profiles, m.port)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.mode == ModeLive {
		return m.startLiveMode()
	}
	if len(m.profiles) == 1 {
		return loadSession(m.profiles[0])
	}
	return nil
}

func (m Model) startLiveMode() tea.Cmd {
	if *m.serving {
		return listenWebSocket(m.server)
	}
	*m.serving = true
	return tea.Batch(
		listenWebSocket(m.server),
		startWSServer(m.server),
	)
}

func startWSServer(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		if err := srv.ListenAndServe(context.Background()); err != nil {
			applog.Error("tui.serve", err)
		}
		return wsDisconnectedMsg{}
	}
}

func loadSession(profile types.Profile) tea.Cmd {
	return func() tea.Msg {
		snap, err := firefox.ReadProfile(profile)
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func listenWebSocket(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		for {
			msg, ok := <-srv.Messages()
			if !ok {
				return wsDisconnectedMsg{}
			}
			switch msg.Type {
			case server.TypeSnapshot:
				snap, err := server.ParseSnapshot(msg)
				if err != nil {
					applog.Error("tui.snapshot", err)
					continue
				}
				return wsSnapshotMsg{snap: snap}
			case server.TypeTabCreated, server.TypeTabUpdated:
				tab, err := server.ParseTab(msg.Tab)
				if err != nil {
					continue // skip malformed, keep listening
				}
				return wsTabMsg{tab: tab}
			case server.TypeTabRemoved:
				return wsTabRemovedMsg{tabID: msg.TabID}
			case server.TypeWindowRemoved:
				return wsWindowRemovedMsg{windowID: msg.WindowID}
			case server.TypeResponse:
				if msg.OK != nil {
					return wsCmdResponseMsg{id: msg.ID, ok: *msg.OK, error: msg.Error}
				}
			}
		}
	}
}

func (m *Model) selectSource(src Source) tea.Cmd {
	m.showPicker = false
	m.loading = true
	m.list.ClearSelection()
	if src.IsLive {
		m.mode = ModeLive
		return m.startLiveMode()
	}
	m.mode = ModeOffline
	m.profile = *src.Profile
	return loadSession(m.profile)
}

func (m Model) live() bool {
	return m.mode == ModeLive && m.connected
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listWidth := m.width * 60 / 100
		detailWidth := m.width - listWidth - 4 // borders
		paneHeight := m.height - 4              // top bar + bottom bar
		m.list.Width = listWidth
		m.list.Height = paneHeight
		m.detail.Width = detailWidth
		m.detail.Height = paneHeight
		m.picker.Width = m.width
		m.picker.Height = m.height
		return m, nil

	case tea.KeyMsg:
		if m.showPicker {
			return m.updatePicker(msg)
		}
		return m.updateList(msg)

	case snapshotLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.profile = msg.snap.Profile
		m.setSnapshot(msg.snap)
		return m, nil

	case wsSnapshotMsg:
		m.loading = false
		m.connected = true
		m.err = nil
		m.setSnapshot(msg.snap)
		return m, listenWebSocket(m.server)

	case wsTabMsg:
		if m.snap != nil {
			m.setSnapshot(withTab(m.snap, msg.tab))
		}
		return m, listenWebSocket(m.server)

	case wsTabRemovedMsg:
		if m.snap != nil {
			m.setSnapshot(without(m.snap, func(t types.Tab) bool { return t.ID == msg.tabID }, 0))
		}
		return m, listenWebSocket(m.server)

	case wsWindowRemovedMsg:
		if m.snap != nil {
			m.setSnapshot(without(m.snap, func(t types.Tab) bool { return t.WindowID == msg.windowID }, msg.windowID))
		}
		return m, listenWebSocket(m.server)

	case wsCmdResponseMsg:
		if !msg.ok {
			m.status = "command failed: " + msg.error
		}
		return m, listenWebSocket(m.server)

	case wsDisconnectedMsg:
		m.connected = false
		return m, nil

	case actionDoneMsg:
		switch {
		case errors.Is(msg.err, server.ErrNotConnected):
			m.connected = false
			m.status = "extension not connected"
		case msg.err != nil:
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		default:
			m.status = fmt.Sprintf("%s: %d sent", msg.action, msg.count)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		cmd := m.selectSource(m.picker.Selected())
		return m, cmd
	case "esc":
		if m.snap != nil {
			m.showPicker = false
		}
	case "q", "ctrl+c":
		return m, tea.Quit
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(msg.String()[0] - '0')
		if m.picker.SelectByNumber(n) {
			cmd := m.selectSource(m.picker.Selected())
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.list.MoveUp()
	case "down", "j":
		m.list.MoveDown()
	case " ":
		m.list.Toggle()
		m.list.MoveDown()
	case "a":
		m.list.SelectAllClosable()
	case "esc":
		m.list.ClearSelection()
		m.status = ""
	case "s":
		m.picker = NewSourcePicker(m.profiles, m.port)
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.showPicker = true
	case "r":
		if m.mode == ModeLive {
			// The extension pushes a fresh snapshot on every reconnect.
			m.analyze()
			return m, nil
		}
		m.loading = true
		return m, loadSession(m.profile)
	case "enter":
		if !m.live() {
			return m, nil
		}
		if row := m.list.Current(); row != nil && row.Tab != nil {
			return m, sendCmd(m.server, server.OutgoingMsg{
				Action: server.ActionFocus,
				TabID:  row.Tab.ID,
			})
		}
	case "x":
		if !m.live() {
			m.status = "closing tabs needs a live connection"
			return m, nil
		}
		ids := m.list.SelectedCloseIDs()
		if len(ids) == 0 {
			return m, nil
		}
		m.list.ClearSelection()
		return m, sendCmd(m.server, server.OutgoingMsg{
			Action: server.ActionClose,
			TabIDs: ids,
		})
	case "m":
		if !m.live() {
			m.status = "moving tabs needs a live connection"
			return m, nil
		}
		moves := m.list.SelectedMoves()
		if len(moves) == 0 {
			return m, nil
		}
		m.list.ClearSelection()
		return m, applyMoves(m.server, moves)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.picker = NewSourcePicker(m.profiles, m.port)
		n := int(msg.String()[0] - '0')
		if m.picker.SelectByNumber(n) {
			cmd := m.selectSource(m.picker.Selected())
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) setSnapshot(snap *types.Snapshot) {
	m.snap = snap
	m.analyze()
}

// analyze recomputes duplicates, suggestions and stats for the current
// snapshot.
func (m *Model) analyze() {
	if m.snap == nil {
		return
	}
	domains, keywords := types.NewDomainMapping(), types.NewKeywordMapping()
	if m.opts.Assignments != nil {
		d, k, err := m.opts.Assignments()
		if err != nil {
			applog.Error("tui.assignments", err)
			m.status = "could not load assignments"
		} else {
			domains, keywords = d, k
		}
	}
	if m.mode == ModeLive {
		var stale []int
		domains, keywords, stale = assign.DropStale(domains, keywords, m.snap.HasWindow)
		if len(stale) > 0 {
			m.status = fmt.Sprintf("ignoring assignments for closed windows %v", stale)
		}
	}
	m.dupes = analyzer.FindDuplicates(m.snap.Tabs, m.opts.Match, m.opts.KeepNewest, analyzer.WithRecency(analyzer.RecencyFor(m.snap)))
	m.suggestions = consolidate.Plan(m.snap.Tabs, domains, keywords, m.opts.Threshold)
	m.stats = analyzer.ComputeStats(m.snap, m.dupes, m.suggestions)
	m.list.SetData(m.dupes, m.suggestions)
}

// withTab returns a copy of snap with tab inserted or replaced.
func withTab(snap *types.Snapshot, tab types.Tab) *types.Snapshot {
	next := *snap
	next.Tabs = make([]types.Tab, 0, len(snap.Tabs)+1)
	found := false
	for _, t := range snap.Tabs {
		if t.ID == tab.ID {
			t = tab
			found = true
		}
		next.Tabs = append(next.Tabs, t)
	}
	if !found {
		next.Tabs = append(next.Tabs, tab)
	}
	if !snap.HasWindow(tab.WindowID) {
		next.Windows = append(append([]int(nil), snap.Windows...), tab.WindowID)
	}
	next.TakenAt = time.Now()
	return &next
}

// without returns a copy of snap minus the tabs drop matches, and minus
// windowID when it is non-zero.
func without(snap *types.Snapshot, drop func(types.Tab) bool, windowID int) *types.Snapshot {
	next := *snap
	next.Tabs = nil
	for _, t := range snap.Tabs {
		if !drop(t) {
			next.Tabs = append(next.Tabs, t)
		}
	}
	if windowID != 0 {
		next.Windows = nil
		for _, w := range snap.Windows {
			if w != windowID {
				next.Windows = append(next.Windows, w)
			}
		}
	}
	next.TakenAt = time.Now()
	return &next
}

func (m Model) View() string {
	if m.loading {
		if m.mode == ModeLive {
			return fmt.Sprintf("\n  Waiting for extension connection on :%d...\n", m.port)
		}
		return "\n  Loading session data...\n"
	}

	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press 1-9 to switch source, 'q' to quit.\n", m.err)
	}

	if m.snap == nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	// Top bar
	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	var sourceStr string
	if m.mode == ModeLive {
		if m.connected {
			sourceStr = "Live ● connected"
		} else {
			sourceStr = "Live ○ waiting..."
		}
	} else {
		sourceStr = fmt.Sprintf("Profile: %s (offline)", m.profile.Name)
	}
	statsStr := fmt.Sprintf("%d tabs · %d windows", m.stats.TotalTabs, m.stats.TotalWindows)
	if m.stats.DuplicateTabs > 0 {
		statsStr += fmt.Sprintf(" · %d dup", m.stats.DuplicateTabs)
	}
	if m.stats.StrayTabs > 0 {
		statsStr += fmt.Sprintf(" · %d stray", m.stats.StrayTabs)
	}
	statsStr += " · match " + m.opts.Match.OrDefault().String()
	topBar := topBarStyle.Render(sourceStr + "  " + statsStr)

	// Panes
	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(m.list.Width).
		Height(m.list.Height)

	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.detail.Width).
		Height(m.detail.Height)

	left := listBorder.Render(m.list.View())
	right := detailBorder.Render(m.detail.View(m.list.Current()))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	// Bottom bar
	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	var bottomText string
	if m.status != "" {
		bottomText = m.status + " · "
	}
	if m.live() {
		if n := len(m.list.CloseTabs) + len(m.list.Moves); n > 0 {
			bottomText += fmt.Sprintf("%d selected · esc clear · ", n)
		}
		bottomText += "space select · a all dups · x close · m move · enter focus · "
	}
	bottomText += "↑↓/jk navigate · r refresh · s/1-9 source · q quit"
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, bottomBar)
}
