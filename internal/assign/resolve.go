// Package assign decides which window a tab belongs in, based on the user's
// domain and keyword assignments.
package assign

import (
	"net/url"
	"strings"

	"github.com/lotas/fensterordnung/internal/analyzer"
	"github.com/lotas/fensterordnung/internal/types"
)

var restrictedPrefixes = []string{
	"about:", "moz-extension:", "chrome:", "chrome-extension:", "edge:",
	"resource:", "file:", "data:", "view-source:",
}

// Restricted reports whether rawURL is a browser-internal page that must not
// be moved or matched.
func Restricted(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Eligible reports whether a tab may be auto-organized. Callers filter with
// it before calling Resolve.
func Eligible(tab types.Tab) bool {
	return !tab.Pinned && !Restricted(tab.URL)
}

// Resolve returns the window a tab should live in. Domain assignments win over
// keyword assignments; within each, windows are scanned in mapping order.
// It does not modify either mapping.
func Resolve(tab types.Tab, domains, keywords types.Mapping) (windowID int, ok bool) {
	if id, ok := resolveDomain(tab, domains); ok {
		return id, true
	}
	return resolveKeyword(tab, keywords)
}

func resolveDomain(tab types.Tab, domains types.Mapping) (int, bool) {
	key := analyzer.DomainKey(tab.URL)
	if key == "" {
		return 0, false
	}
	for _, e := range domains.Entries() {
		for _, d := range e.Values {
			if d == key {
				return e.WindowID, true
			}
		}
	}
	return 0, false
}

func resolveKeyword(tab types.Tab, keywords types.Mapping) (int, bool) {
	h := newHaystack(tab)
	for _, e := range keywords.Entries() {
		for _, kw := range e.Values {
			if h.contains(kw) {
				return e.WindowID, true
			}
		}
	}
	return 0, false
}

// haystack holds the lower-cased fields keywords are matched against.
type haystack struct {
	url, title, host string
}

func newHaystack(tab types.Tab) haystack {
	h := haystack{
		url:   strings.ToLower(tab.URL),
		title: strings.ToLower(tab.Title),
	}
	if u, err := url.Parse(tab.URL); err == nil {
		h.host = strings.ToLower(u.Hostname())
	}
	return h
}

func (h haystack) contains(keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	return strings.Contains(h.url, kw) || strings.Contains(h.title, kw) || strings.Contains(h.host, kw)
}

// MatchesKeyword reports whether keyword occurs in the tab's URL, title or
// hostname, ignoring case.
func MatchesKeyword(tab types.Tab, keyword string) bool {
	return newHaystack(tab).contains(keyword)
}

// Outcome classifies a resolution for the caller.
type Outcome int

const (
	OutcomeNone     Outcome = iota // no assignment applies
	OutcomeResolved                // target window exists
	OutcomeStale                   // assignment points at a closed window
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeStale:
		return "stale"
	default:
		return "none"
	}
}

// Resolution is the result of ResolveTarget.
type Resolution struct {
	WindowID int
	Outcome  Outcome
}

// InPlace reports whether the tab already lives in its target window.
func (r Resolution) InPlace(tab types.Tab) bool {
	return r.Outcome == OutcomeResolved && r.WindowID == tab.WindowID
}

// ResolveTarget resolves tab and checks the target against exists. A target
// that no longer exists is reported as OutcomeStale so the caller can clean
// up the assignment; it is never an error.
func ResolveTarget(tab types.Tab, domains, keywords types.Mapping, exists func(windowID int) bool) Resolution {
	id, ok := Resolve(tab, domains, keywords)
	if !ok {
		return Resolution{Outcome: OutcomeNone}
	}
	if exists != nil && !exists(id) {
		return Resolution{WindowID: id, Outcome: OutcomeStale}
	}
	return Resolution{WindowID: id, Outcome: OutcomeResolved}
}
