package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// ErrMalformedURL is returned by BuildKey for input that is not an absolute URL.
// Callers treat it as "never matches anything".
var ErrMalformedURL = errors.New("malformed URL")

var (
	ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	ipv6Pattern = regexp.MustCompile(`(?i)^([0-9a-f]{0,4}:){2,7}[0-9a-f]{0,4}$`)
)

// URLKey holds the structural fields of a URL used for matching.
type URLKey struct {
	Scheme     string
	Host       string // lower-cased, without port or IPv6 brackets
	Port       string // "" for no port or a default port (80, 443)
	Path       string
	Query      string // canonical: keys and each key's values sorted
	Fragment   string
	RootDomain string
	DomainKey  string // RootDomain, or RootDomain:Port for non-default ports
}

// BuildKey decomposes rawURL into its match fields.
func BuildKey(rawURL string) (URLKey, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return URLKey{}, fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}
	if !u.IsAbs() {
		return URLKey{}, fmt.Errorf("%w: %q has no scheme", ErrMalformedURL, rawURL)
	}

	k := URLKey{
		Scheme:   strings.ToLower(u.Scheme),
		Host:     strings.ToLower(u.Hostname()),
		Port:     normalizePort(u.Port()),
		Path:     u.EscapedPath(),
		Query:    canonicalQuery(u.RawQuery),
		Fragment: u.Fragment,
	}
	if u.Opaque != "" {
		k.Path = u.Opaque
	} else if k.Path == "" && u.Host != "" {
		k.Path = "/"
	}
	k.RootDomain = RootDomain(k.Host)
	k.DomainKey = k.RootDomain
	if k.Port != "" {
		k.DomainKey = k.RootDomain + ":" + k.Port
	}
	return k, nil
}

// DomainKey returns the domain key of rawURL, or "" if it does not parse.
func DomainKey(rawURL string) string {
	k, err := BuildKey(rawURL)
	if err != nil {
		return ""
	}
	return k.DomainKey
}

// IsAddressHost reports whether host is an IP literal or localhost.
func IsAddressHost(host string) bool {
	return host == "localhost" || ipv4Pattern.MatchString(host) || ipv6Pattern.MatchString(host)
}

// RootDomain returns the last two labels of host. IP literals and localhost
// are returned whole so hosts on the same subnet stay distinct. There is no
// public-suffix lookup: "example.co.uk" yields "co.uk".
func RootDomain(host string) string {
	if IsAddressHost(host) {
		return host
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func normalizePort(port string) string {
	if port == "80" || port == "443" {
		return ""
	}
	return port
}

// canonicalQuery renders the query as an unordered multiset of pairs so
// parameter order does not affect equality.
func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	params, err := url.ParseQuery(raw)
	if err != nil {
		// ParseQuery drops the pairs it rejects; keep every raw pair instead.
		pairs := strings.Split(raw, "&")
		sort.Strings(pairs)
		return strings.Join(pairs, "&")
	}
	for k := range params {
		sort.Strings(params[k])
	}
	return params.Encode() // Encode sorts by key
}
