package types

import (
	"fmt"
	"strings"
)

// MatchConfig selects which URL facets must be equal for two tabs to match.
type MatchConfig struct {
	Domain    bool `yaml:"domain" json:"domain"`
	Subdomain bool `yaml:"subdomain" json:"subdomain"`
	Port      bool `yaml:"port" json:"port"`
	Path      bool `yaml:"path" json:"path"`
	Query     bool `yaml:"query" json:"query"`
	Fragment  bool `yaml:"fragment" json:"fragment"`
}

var (
	Relaxed = MatchConfig{Domain: true}
	Normal  = MatchConfig{Domain: true, Subdomain: true, Port: true, Path: true, Query: true}
	Strict  = MatchConfig{Domain: true, Subdomain: true, Port: true, Path: true, Query: true, Fragment: true}
)

// matchModes maps preset names and legacy single-mode names to facet sets.
var matchModes = map[string]MatchConfig{
	"relaxed": Relaxed,
	"normal":  Normal,
	"strict":  Strict,

	// legacy
	"exact":     Strict,
	"domain":    {Domain: true},
	"subdomain": {Domain: true, Subdomain: true, Port: true},
	"path":      {Domain: true, Subdomain: true, Port: true, Path: true},
}

// ParseMatchMode resolves a preset or legacy mode name. Empty means Normal.
func ParseMatchMode(name string) (MatchConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Normal, nil
	}
	cfg, ok := matchModes[name]
	if !ok {
		return MatchConfig{}, fmt.Errorf("unknown match mode %q", name)
	}
	return cfg, nil
}

// IsZero reports whether no facet is enabled.
func (c MatchConfig) IsZero() bool {
	return c == MatchConfig{}
}

// OrDefault returns c, or Normal when no facet is enabled.
func (c MatchConfig) OrDefault() MatchConfig {
	if c.IsZero() {
		return Normal
	}
	return c
}

func (c MatchConfig) String() string {
	var parts []string
	if c.Domain {
		parts = append(parts, "domain")
	}
	if c.Subdomain {
		parts = append(parts, "subdomain")
	}
	if c.Port {
		parts = append(parts, "port")
	}
	if c.Path {
		parts = append(parts, "path")
	}
	if c.Query {
		parts = append(parts, "query")
	}
	if c.Fragment {
		parts = append(parts, "fragment")
	}
	return "{" + strings.Join(parts, ",") + "}"
}
