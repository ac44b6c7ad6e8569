// Package config loads user settings from ~/.config/fensterordnung/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lotas/fensterordnung/internal/types"
)

const (
	DefaultPort      = 19191
	DefaultThreshold = 3
)

// Facets overrides individual match facets on top of the selected mode.
// Unset fields leave the mode's value alone.
type Facets struct {
	Domain    *bool `yaml:"domain"`
	Subdomain *bool `yaml:"subdomain"`
	Port      *bool `yaml:"port"`
	Path      *bool `yaml:"path"`
	Query     *bool `yaml:"query"`
	Fragment  *bool `yaml:"fragment"`
}

// Config holds every setting the CLI reads. Zero values mean "use default".
type Config struct {
	Match     string `yaml:"match"` // preset or legacy mode name
	Facets    Facets `yaml:"facets"`
	Keep      string `yaml:"keep"` // newest or oldest
	Threshold int    `yaml:"threshold"`
	Port      int    `yaml:"port"`
	Profile   string `yaml:"profile"`
	LogDir    string `yaml:"log_dir"`
	DBPath    string `yaml:"db_path"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Match:     "normal",
		Keep:      "newest",
		Threshold: DefaultThreshold,
		Port:      DefaultPort,
	}
}

// DefaultPath returns ~/.config/fensterordnung/config.yaml, honouring
// XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return filepath.Join(dir, "fensterordnung", "config.yaml"), nil
}

// Load reads path on top of Default and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FENSTERORDNUNG_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := getenv("FENSTERORDNUNG_DB"); v != "" {
		c.DBPath = v
	}
	if v := getenv("FENSTERORDNUNG_LOG_DIR"); v != "" {
		c.LogDir = v
	}
}

// Validate checks every field that has a closed set of values.
func (c Config) Validate() error {
	if _, err := c.MatchConfig(); err != nil {
		return err
	}
	switch strings.ToLower(c.Keep) {
	case "", "newest", "oldest":
	default:
		return fmt.Errorf("keep: %q is not newest or oldest", c.Keep)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port: %d out of range", c.Port)
	}
	return nil
}

// MatchConfig resolves the match mode and facet overrides into the value the
// duplicate finder uses.
func (c Config) MatchConfig() (types.MatchConfig, error) {
	mc, err := types.ParseMatchMode(c.Match)
	if err != nil {
		return mc, fmt.Errorf("match: %w", err)
	}
	f := c.Facets
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&mc.Domain, f.Domain)
	set(&mc.Subdomain, f.Subdomain)
	set(&mc.Port, f.Port)
	set(&mc.Path, f.Path)
	set(&mc.Query, f.Query)
	set(&mc.Fragment, f.Fragment)
	if mc.IsZero() {
		return mc, errors.New("facets: at least one facet must be enabled")
	}
	return mc, nil
}

// KeepNewest reports whether duplicate groups keep their most recent tab.
func (c Config) KeepNewest() bool {
	return !strings.EqualFold(c.Keep, "oldest")
}

// EffectiveThreshold returns the planner threshold, defaulting when unset.
func (c Config) EffectiveThreshold() int {
	if c.Threshold <= 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

// EffectiveLogDir returns LogDir or ~/.local/share/fensterordnung.
func (c Config) EffectiveLogDir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fensterordnung")
	}
	return filepath.Join(home, ".local", "share", "fensterordnung")
}
