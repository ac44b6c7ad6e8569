package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/fensterordnung/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FENSTERORDNUNG_PROFILE", "")
	t.Setenv("FENSTERORDNUNG_DB", "")
	t.Setenv("FENSTERORDNUNG_LOG_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
	mc, _ := cfg.MatchConfig()
	if mc != types.Normal {
		t.Errorf("match config: got %s, want normal", mc)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("FENSTERORDNUNG_PROFILE", "")
	t.Setenv("FENSTERORDNUNG_DB", "")
	path := writeConfig(t, `
match: path
facets:
  query: true
keep: oldest
threshold: 5
port: 20000
profile: work
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KeepNewest() {
		t.Error("keep: oldest should disable KeepNewest")
	}
	if cfg.EffectiveThreshold() != 5 || cfg.Port != 20000 || cfg.Profile != "work" {
		t.Errorf("got %+v", cfg)
	}

	mc, err := cfg.MatchConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := types.MatchConfig{Domain: true, Subdomain: true, Port: true, Path: true, Query: true}
	if mc != want {
		t.Errorf("match config: got %s, want %s", mc, want)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FENSTERORDNUNG_PROFILE", "from-env")
	t.Setenv("FENSTERORDNUNG_DB", "/tmp/x.db")
	cfg, err := Load(writeConfig(t, "profile: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Profile != "from-env" || cfg.DBPath != "/tmp/x.db" {
		t.Errorf("got profile=%q db=%q", cfg.Profile, cfg.DBPath)
	}
}

func TestValidate(t *testing.T) {
	off := false
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Default(), false},
		{"unknown mode", Config{Match: "fuzzy"}, true},
		{"bad keep", Config{Keep: "middle"}, true},
		{"bad port", Config{Port: 70000}, true},
		{"all facets off", Config{Match: "domain", Facets: Facets{Domain: &off}}, true},
		{"legacy exact", Config{Match: "EXACT"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "match: [unclosed\n")); err == nil {
		t.Error("expected parse error")
	}
}

func TestEffectiveThreshold(t *testing.T) {
	if got := (Config{}).EffectiveThreshold(); got != DefaultThreshold {
		t.Errorf("got %d, want %d", got, DefaultThreshold)
	}
}
