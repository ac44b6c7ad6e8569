package firefox

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/consolidate"
	"github.com/lotas/fensterordnung/internal/types"
	"github.com/pierrec/lz4/v4"
)

func writeMozLz4(t *testing.T, path string, jsonBytes []byte) {
	t.Helper()
	compressed := make([]byte, lz4.CompressBlockBound(len(jsonBytes)))
	n, err := lz4.CompressBlock(jsonBytes, compressed, nil)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	mozlz4 := make([]byte, 0, 12+n)
	mozlz4 = append(mozlz4, []byte("mozLz40\x00")...)
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(jsonBytes)))
	mozlz4 = append(mozlz4, sizeBuf...)
	mozlz4 = append(mozlz4, compressed[:n]...)

	if err := os.WriteFile(path, mozlz4, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIntegration_FullPipeline(t *testing.T) {
	profileDir := t.TempDir()
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	os.MkdirAll(backupDir, 0755)

	sessionJSON := `{
		"version": ["sessionrestore", 1],
		"windows": [
			{"tabs": [
				{"entries": [{"url": "https://example.com/a?x=1&y=2", "title": "Example"}], "index": 1},
				{"entries": [{"url": "https://example.com/a?y=2&x=1", "title": "Example Dup"}], "index": 1},
				{"entries": [{"url": "https://github.com/golang/go", "title": "Go"}], "index": 1},
				{"entries": [{"url": "https://github.com/lotas", "title": "lotas"}], "index": 1},
				{"entries": [{"url": "https://github.com/x", "title": "x"}], "index": 1}
			]},
			{"tabs": [
				{"entries": [{"url": "https://github.com/y", "title": "y"}], "index": 1},
				{"entries": [{"url": "about:blank"}], "index": 1, "pinned": true}
			]}
		]
	}`
	writeMozLz4(t, filepath.Join(backupDir, "recovery.jsonlz4"), []byte(sessionJSON))

	snap, err := ReadProfile(types.Profile{Name: "test", Path: profileDir})
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if snap.Profile.Name != "test" {
		t.Errorf("profile not recorded: %+v", snap.Profile)
	}

	dupes := analyzer.FindDuplicates(snap.Tabs, types.Normal, true)
	plan := consolidate.Plan(snap.Tabs, types.Mapping{}, types.Mapping{}, consolidate.DefaultThreshold)
	stats := analyzer.ComputeStats(snap, dupes, plan)

	if stats.TotalTabs != 7 {
		t.Errorf("expected 7 tabs, got %d", stats.TotalTabs)
	}
	if stats.TotalWindows != 2 {
		t.Errorf("expected 2 windows, got %d", stats.TotalWindows)
	}
	if stats.DuplicateGroups != 1 || stats.DuplicateTabs != 1 {
		t.Errorf("expected 1 group with 1 closable tab, got %d/%d", stats.DuplicateGroups, stats.DuplicateTabs)
	}
	if len(plan) != 1 || plan[0].Key != "github.com" || plan[0].TargetWindow != 1 {
		t.Fatalf("expected github.com consolidated into window 1, got %+v", plan)
	}
	if plan[0].Tabs[0].URL != "https://github.com/y" {
		t.Errorf("unexpected stray: %+v", plan[0].Tabs[0])
	}
}

func TestReadSessionFileFallsBackToPrevious(t *testing.T) {
	profileDir := t.TempDir()
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	os.MkdirAll(backupDir, 0755)
	writeMozLz4(t, filepath.Join(backupDir, "previous.jsonlz4"),
		[]byte(`{"windows":[{"tabs":[{"entries":[{"url":"https://a.com"}],"index":1}]}]}`))

	snap, err := ReadSessionFile(profileDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Tabs) != 1 {
		t.Errorf("got %d tabs, want 1", len(snap.Tabs))
	}

	if _, err := ReadSessionFile(t.TempDir()); err == nil {
		t.Error("expected error for profile without session files")
	}
}
