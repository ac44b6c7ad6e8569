package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/applog"
	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/config"
	"github.com/lotas/fensterordnung/internal/consolidate"
	"github.com/lotas/fensterordnung/internal/export"
	"github.com/lotas/fensterordnung/internal/firefox"
	"github.com/lotas/fensterordnung/internal/server"
	"github.com/lotas/fensterordnung/internal/storage"
	"github.com/lotas/fensterordnung/internal/tui"
	"github.com/lotas/fensterordnung/internal/types"
	"github.com/lotas/fensterordnung/internal/watch"
)

const liveTimeout = 10 * time.Second

func main() {
	cfg := loadConfig()
	if err := applog.Init(cfg.EffectiveLogDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer applog.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "dupes":
			runDupes(cfg, os.Args[2:])
			return
		case "plan":
			runPlan(cfg, os.Args[2:])
			return
		case "resolve":
			runResolve(cfg, os.Args[2:])
			return
		case "assign":
			runAssign(cfg, os.Args[2:])
			return
		case "watch":
			runWatch(cfg, os.Args[2:])
			return
		case "export":
			runExport(cfg, os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("fensterordnung", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name (skip picker)")
	liveMode := fs.Bool("live", false, "Start in live mode (connect to extension)")
	port := fs.Int("port", cfg.Port, "WebSocket port for live mode")
	fs.Parse(os.Args[1:])

	profiles, err := firefox.DiscoverProfiles()
	if err != nil && !*liveMode {
		fatalf("Error discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 && !*liveMode {
		fatalf("No Firefox profiles found.")
	}

	if name := resolveProfileName(cfg, *profileName); name != "" && !*liveMode {
		p, err := firefox.FindProfile(profiles, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Profile %q not found. Available profiles:\n", name)
			for _, p := range profiles {
				fmt.Fprintf(os.Stderr, "  - %s\n", p.Name)
			}
			os.Exit(1)
		}
		profiles = []types.Profile{p}
	}

	db := mustOpenDB(cfg)
	defer db.Close()

	// ListenAndServe is only called when the user actually enters live mode.
	srv := server.New(*port)

	model := tui.NewModel(profiles, tui.Options{
		Match:       mustMatch(cfg),
		KeepNewest:  cfg.KeepNewest(),
		Threshold:   cfg.EffectiveThreshold(),
		Assignments: func() (types.Mapping, types.Mapping, error) { return storage.LoadAll(db) },
	}, *liveMode, srv)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fatalf("Error: %v", err)
	}
}

func printHelp() {
	fmt.Print(`fensterordnung - keep Firefox windows in order

Usage:
  fensterordnung                                        Start the review TUI (default)
    --profile <name>       Firefox profile name (skips picker)
    --live                 Start in live mode (connect to extension)
    --port <n>             WebSocket port for live mode (default: 19191)

  fensterordnung dupes                                  List duplicate tabs
    --profile <name> | --live
    --match <mode>         strict, normal, relaxed or a legacy mode (exact, domain, subdomain, path)
    --keep <newest|oldest> Which tab of a group is kept
    --close                Close the duplicates (live only)

  fensterordnung plan                                   Suggest moves that consolidate windows
    --profile <name> | --live
    --threshold <n>        Minimum tabs in a home window for unassigned domains (default: 3)
    --apply                Apply moves without confirmation (live only)

  fensterordnung resolve <url> [--title T]              Show which window a URL belongs to

  fensterordnung assign list                            List window assignments
  fensterordnung assign add <domain|keyword> <window> <value>
  fensterordnung assign remove <domain|keyword> <window> <value>
  fensterordnung assign prune [--port N]                Drop assignments of closed windows (live)
  fensterordnung assign export [--out file]             Write assignments as JSON
  fensterordnung assign import <file|->                 Replace assignments from JSON

  fensterordnung watch [--renotify]                     Organize tabs as they open (live)
    --port <n>             WebSocket port (default: 19191)
    --no-organize          Do not move tabs
    --no-notify            Do not report new duplicates

  fensterordnung export                                 Export a report to stdout or file
    --profile <name> | --live
    --format <md|json>     Output format (default: md)
    --out <file>           Output file path (default: stdout)

  fensterordnung profiles                               List Firefox profiles

Configuration:
  ~/.config/fensterordnung/config.yaml (match, facets, keep, threshold, port, profile, log_dir, db_path)

Environment:
  FENSTERORDNUNG_PROFILE  Default Firefox profile (overridden by --profile flag)
  FENSTERORDNUNG_DB       Database path
  FENSTERORDNUNG_LOG_DIR  Log directory
`)
}

// sourceFlags are shared by every command that reads tabs.
type sourceFlags struct {
	profile *string
	live    *bool
	port    *int
}

func addSourceFlags(fs *flag.FlagSet, cfg config.Config) sourceFlags {
	return sourceFlags{
		profile: fs.String("profile", "", "Firefox profile name"),
		live:    fs.Bool("live", false, "Read tabs from the live extension instead of the session file"),
		port:    fs.Int("port", cfg.Port, "WebSocket port for live mode"),
	}
}

// liveSession is a running bridge with the first snapshot received.
type liveSession struct {
	srv    *server.Server
	snap   *types.Snapshot
	cancel context.CancelFunc
}

func (l *liveSession) Close() {
	if l != nil {
		l.cancel()
	}
}

// acquire reads a snapshot from the session file or, with --live, from the
// extension. The returned live session is nil offline.
func (f sourceFlags) acquire(cfg config.Config) (*types.Snapshot, *liveSession, error) {
	if *f.live {
		l, err := connectLive(*f.port)
		if err != nil {
			return nil, nil, err
		}
		return l.snap, l, nil
	}
	snap, err := resolveSession(resolveProfileName(cfg, *f.profile))
	return snap, nil, err
}

func connectLive(port int) (*liveSession, error) {
	srv := server.New(port)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx) }()

	fmt.Fprintf(os.Stderr, "Waiting for Firefox extension on port %d...\n", port)

	timeout := time.After(liveTimeout)
	for {
		select {
		case msg := <-srv.Messages():
			if msg.Type != server.TypeSnapshot {
				continue
			}
			snap, err := server.ParseSnapshot(msg)
			if err != nil {
				cancel()
				return nil, err
			}
			return &liveSession{srv: srv, snap: snap, cancel: cancel}, nil
		case err := <-errc:
			cancel()
			return nil, fmt.Errorf("websocket server: %w", err)
		case <-timeout:
			cancel()
			return nil, fmt.Errorf("timed out waiting for extension (%s)", liveTimeout)
		}
	}
}

// resolveSession discovers profiles and reads the session of the named
// profile, or of the default profile when name is empty.
func resolveSession(name string) (*types.Snapshot, error) {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}
	profile, err := firefox.FindProfile(profiles, name)
	if err != nil {
		return nil, err
	}
	return firefox.ReadProfile(profile)
}

func runDupes(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("dupes", flag.ExitOnError)
	src := addSourceFlags(fs, cfg)
	match := fs.String("match", "", "Match mode (strict, normal, relaxed, exact, domain, subdomain, path)")
	keep := fs.String("keep", "", "Keep the newest or oldest tab of each group")
	closeDupes := fs.Bool("close", false, "Close duplicates via live mode")
	fs.Parse(args)

	if *match != "" {
		cfg.Match = *match
	}
	if *keep != "" {
		cfg.Keep = *keep
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Error: %v", err)
	}
	if *closeDupes && !*src.live {
		fatalf("Error: --close needs --live")
	}

	snap, live, err := src.acquire(cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer live.Close()

	mc := mustMatch(cfg)
	dupes := analyzer.FindDuplicates(snap.Tabs, mc, cfg.KeepNewest(), analyzer.WithRecency(analyzer.RecencyFor(snap)))
	fmt.Print(formatDupes(dupes, mc))

	if !*closeDupes || dupes.TotalDuplicates == 0 {
		return
	}
	ids := dupes.ClosableIDs()
	err = live.srv.Send(server.OutgoingMsg{
		ID:     server.NewCommandID(),
		Action: server.ActionClose,
		TabIDs: ids,
	})
	if err != nil {
		fatalf("Error closing tabs: %v", err)
	}
	applog.Info("dupes.close", "tabs", len(ids))
	fmt.Printf("Closed %d tabs.\n", len(ids))
}

func formatDupes(dupes types.DuplicateResult, mc types.MatchConfig) string {
	if len(dupes.Groups) == 0 {
		return fmt.Sprintf("No duplicates (matching on %s).\n", mc)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d duplicate group(s), %d closable (matching on %s):\n", len(dupes.Groups), dupes.TotalDuplicates, mc)
	for _, g := range dupes.Groups {
		fmt.Fprintf(&b, "\n  keep  [w%d] %s\n", g.Keeper.WindowID, tabLabel(g.Keeper))
		for _, t := range g.Closable {
			fmt.Fprintf(&b, "  close [w%d] %s\n", t.WindowID, tabLabel(t))
		}
	}
	return b.String()
}

func tabLabel(t types.Tab) string {
	if t.Title == "" {
		return t.URL
	}
	return fmt.Sprintf("%s (%s)", t.Title, t.URL)
}

func runPlan(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	src := addSourceFlags(fs, cfg)
	threshold := fs.Int("threshold", cfg.EffectiveThreshold(), "Minimum tabs in a home window for unassigned domains")
	apply := fs.Bool("apply", false, "Apply moves via live mode (skip confirmation)")
	fs.Parse(args)

	if *apply && !*src.live {
		fatalf("Error: --apply needs --live")
	}

	db := mustOpenDB(cfg)
	defer db.Close()
	domains, keywords, err := storage.LoadAll(db)
	if err != nil {
		fatalf("Error loading assignments: %v", err)
	}

	snap, live, err := src.acquire(cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer live.Close()

	if live != nil {
		var stale []int
		domains, keywords, stale = assign.DropStale(domains, keywords, snap.HasWindow)
		if len(stale) > 0 {
			applog.Warn("plan.stale", "windows", fmt.Sprint(stale))
			fmt.Fprintf(os.Stderr, "Ignoring assignments for closed windows %v (run 'assign prune' to remove them)\n", stale)
		}
	}

	suggestions := consolidate.Plan(snap.Tabs, domains, keywords, *threshold)
	fmt.Print(consolidate.FormatDryRun(suggestions))
	if len(suggestions) == 0 || live == nil {
		return
	}

	if !*apply && !confirm("Apply? [y/N] ") {
		fmt.Println("No changes applied.")
		return
	}

	n, err := consolidate.Apply(live.srv, suggestions)
	if err != nil {
		fatalf("Error applying plan after %d of %d moves: %v", n, len(suggestions), err)
	}
	fmt.Printf("Applied %d moves.\n", n)
}

func runResolve(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	title := fs.String("title", "", "Tab title used for keyword matching")
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fatalf("Usage: fensterordnung resolve <url> [--title T]")
	}
	tab := types.Tab{URL: fs.Arg(0), Title: *title}

	db := mustOpenDB(cfg)
	defer db.Close()
	domains, keywords, err := storage.LoadAll(db)
	if err != nil {
		fatalf("Error loading assignments: %v", err)
	}

	fmt.Println(describeResolution(tab, domains, keywords))
}

func describeResolution(tab types.Tab, domains, keywords types.Mapping) string {
	if assign.Restricted(tab.URL) {
		return "restricted URL: never moved"
	}
	res := assign.ResolveTarget(tab, domains, keywords, nil)
	if res.Outcome == assign.OutcomeNone {
		if key := analyzer.DomainKey(tab.URL); key != "" {
			return fmt.Sprintf("no assignment for %s", key)
		}
		return "no assignment"
	}
	return fmt.Sprintf("window %d", res.WindowID)
}

func runAssign(cfg config.Config, args []string) {
	if len(args) == 0 {
		fatalf("Usage: fensterordnung assign list|add|remove|prune|export|import")
	}

	db := mustOpenDB(cfg)
	defer db.Close()

	subcmd, subArgs := args[0], args[1:]
	switch subcmd {
	case "list":
		domains, keywords, err := storage.LoadAll(db)
		if err != nil {
			fatalf("Error loading assignments: %v", err)
		}
		fmt.Print(formatAssignments(domains, keywords))

	case "add", "remove":
		if len(subArgs) != 3 {
			fatalf("Usage: fensterordnung assign %s <domain|keyword> <window> <value>", subcmd)
		}
		kind, err := storage.ParseKind(subArgs[0])
		if err != nil {
			fatalf("Error: %v", err)
		}
		windowID, err := strconv.Atoi(subArgs[1])
		if err != nil || windowID <= 0 {
			fatalf("Invalid window id: %s", subArgs[1])
		}
		var changed bool
		if subcmd == "add" {
			changed, err = storage.AddAssignment(db, kind, windowID, subArgs[2])
		} else {
			changed, err = storage.RemoveAssignment(db, kind, windowID, subArgs[2])
		}
		if err != nil {
			fatalf("Error: %v", err)
		}
		if !changed {
			fmt.Println("No change.")
			return
		}
		applog.Info("assign."+subcmd, "kind", string(kind), "window", windowID, "value", subArgs[2])
		fmt.Println("OK")

	case "prune":
		fs := flag.NewFlagSet("assign prune", flag.ExitOnError)
		port := fs.Int("port", cfg.Port, "WebSocket port for live mode")
		fs.Parse(subArgs)

		// Window ids are only meaningful in the running browser.
		live, err := connectLive(*port)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer live.Close()
		pruned, err := storage.PruneStaleAssignments(db, live.snap.HasWindow)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning some windows: %v\n", err)
		}
		fmt.Printf("Pruned %d window(s).\n", len(pruned))

	case "export":
		fs := flag.NewFlagSet("assign export", flag.ExitOnError)
		outFile := fs.String("out", "", "Output file path (default: stdout)")
		fs.Parse(subArgs)

		var w io.Writer = os.Stdout
		if *outFile != "" {
			f, err := os.Create(*outFile)
			if err != nil {
				fatalf("Error creating file: %v", err)
			}
			defer f.Close()
			w = f
		}
		if err := storage.ExportAssignments(db, w); err != nil {
			fatalf("Error: %v", err)
		}

	case "import":
		if len(subArgs) != 1 {
			fatalf("Usage: fensterordnung assign import <file|->")
		}
		var r io.Reader = os.Stdin
		if subArgs[0] != "-" {
			f, err := os.Open(subArgs[0])
			if err != nil {
				fatalf("Error opening file: %v", err)
			}
			defer f.Close()
			r = f
		}
		file, err := storage.ImportAssignments(db, r)
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Imported %d domain and %d keyword window(s).\n", file.Domains.Len(), file.Keywords.Len())

	default:
		fatalf("Unknown assign command %q. Use list, add, remove, prune, export, or import.", subcmd)
	}
}

func formatAssignments(domains, keywords types.Mapping) string {
	if domains.Len() == 0 && keywords.Len() == 0 {
		return "No assignments.\n"
	}
	var b strings.Builder
	for _, m := range []struct {
		name    string
		mapping types.Mapping
	}{{"Domains", domains}, {"Keywords", keywords}} {
		if m.mapping.Len() == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", m.name)
		for _, e := range m.mapping.Entries() {
			fmt.Fprintf(&b, "  window %d: %s\n", e.WindowID, strings.Join(e.Values, ", "))
		}
	}
	return b.String()
}

func runWatch(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "WebSocket port")
	noOrganize := fs.Bool("no-organize", false, "Do not move tabs into assigned windows")
	noNotify := fs.Bool("no-notify", false, "Do not report new duplicates")
	renotify := fs.Bool("renotify", false, "Forget previously reported duplicates")
	fs.Parse(args)

	db := mustOpenDB(cfg)
	defer db.Close()

	notified := storage.NewNotifiedStore(db)
	if *renotify {
		if err := notified.Reset(); err != nil {
			fatalf("Error: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(*port)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			applog.Error("watch.serve", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			stop()
		}
	}()

	w := watch.New(srv, storage.AssignmentStore{DB: db}, notified, watch.Options{
		Match:      mustMatch(cfg),
		KeepNewest: cfg.KeepNewest(),
		Organize:   !*noOrganize,
		Notify:     !*noNotify,
	})

	fmt.Fprintf(os.Stderr, "Watching on port %d (ctrl-c to stop)...\n", *port)
	applog.Info("watch.start", "port", *port)
	if err := w.Run(ctx, srv.Messages()); err != nil && ctx.Err() == nil {
		fatalf("Error: %v", err)
	}
	applog.Info("watch.stop")
}

func runExport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	src := addSourceFlags(fs, cfg)
	format := fs.String("format", "md", "Output format: md or json")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	db := mustOpenDB(cfg)
	defer db.Close()
	domains, keywords, err := storage.LoadAll(db)
	if err != nil {
		fatalf("Error loading assignments: %v", err)
	}

	snap, live, err := src.acquire(cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	live.Close()

	mc := mustMatch(cfg)
	report := export.Report{
		Snapshot:    snap,
		Match:       mc,
		Duplicates:  analyzer.FindDuplicates(snap.Tabs, mc, cfg.KeepNewest(), analyzer.WithRecency(analyzer.RecencyFor(snap))),
		Suggestions: consolidate.Plan(snap.Tabs, domains, keywords, cfg.EffectiveThreshold()),
		GeneratedAt: time.Now(),
	}

	var output string
	switch *format {
	case "md", "markdown":
		output = export.Markdown(report)
	case "json":
		output, err = export.JSON(report)
		if err != nil {
			fatalf("Error generating JSON: %v", err)
		}
	default:
		fatalf("Unknown format %q (want md or json)", *format)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fatalf("Error writing file: %v", err)
		}
	} else {
		fmt.Print(output)
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatalf("Error discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 {
		fatalf("No Firefox profiles found.")
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

func loadConfig() config.Config {
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	return cfg
}

func mustMatch(cfg config.Config) types.MatchConfig {
	mc, err := cfg.MatchConfig()
	if err != nil {
		fatalf("Error: %v", err)
	}
	return mc
}

func mustOpenDB(cfg config.Config) *sql.DB {
	path := cfg.DBPath
	if path == "" {
		var err error
		if path, err = storage.DefaultDBPath(); err != nil {
			fatalf("Error: %v", err)
		}
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		fatalf("Error opening database: %v", err)
	}
	return db
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	applog.Close()
	os.Exit(1)
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// resolveProfileName returns the profile name from the flag if set,
// otherwise the configured profile (file or FENSTERORDNUNG_PROFILE).
func resolveProfileName(cfg config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Profile
}
