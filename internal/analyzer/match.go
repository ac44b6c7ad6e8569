package analyzer

import (
	"strings"

	"github.com/lotas/fensterordnung/internal/types"
)

// keySep cannot occur in any facet value: hosts, ports and escaped paths
// never contain control characters, and url.Values.Encode escapes them.
const keySep = "\x1f"

// CompositeKey joins the facet values enabled in cfg into a single string.
// Two tabs match under cfg exactly when their composite keys are equal.
func CompositeKey(k URLKey, cfg types.MatchConfig) string {
	cfg = cfg.OrDefault()
	parts := make([]string, 0, 6)
	if cfg.Domain {
		parts = append(parts, "d="+k.RootDomain)
	}
	if cfg.Subdomain {
		parts = append(parts, "h="+k.Host)
	}
	if cfg.Port {
		parts = append(parts, "p="+k.Port)
	}
	if cfg.Path {
		parts = append(parts, "P="+k.Path)
	}
	if cfg.Query {
		parts = append(parts, "q="+k.Query)
	}
	if cfg.Fragment {
		parts = append(parts, "f="+k.Fragment)
	}
	return strings.Join(parts, keySep)
}

// TabKey returns the composite key of a tab. ok is false when the tab's URL
// is malformed; such tabs never match anything.
func TabKey(tab types.Tab, cfg types.MatchConfig) (key string, ok bool) {
	k, err := BuildKey(tab.URL)
	if err != nil {
		return "", false
	}
	return CompositeKey(k, cfg), true
}

// Matches reports whether a and b are equivalent under cfg. A zero cfg
// means the Normal preset.
func Matches(a, b types.Tab, cfg types.MatchConfig) bool {
	ka, ok := TabKey(a, cfg)
	if !ok {
		return false
	}
	kb, ok := TabKey(b, cfg)
	if !ok {
		return false
	}
	return ka == kb
}
