// Package urlnorm implements the URL normalization and stable-id rules the
// Search Client and Parallel Searcher use for dedup (spec.md §4.2, §4.3.5).
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for dedup purposes: lowercase host, strip a
// leading "www.", strip a trailing "/" unless the path is root, keep the
// query string, and ignore scheme differences entirely (the scheme is
// dropped from the normalized form).
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := u.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	var b strings.Builder
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// ID returns a stable short hex hash of the normalized URL, used as
// SearchHit.ID so duplicates across sub-queries collapse to one id
// regardless of positional index.
func ID(raw string) string {
	h := sha256.Sum256([]byte(Normalize(raw)))
	return hex.EncodeToString(h[:])[:16]
}

// Host returns the lowercase, www-stripped host of a URL, or "" if it cannot
// be parsed.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// MatchesSuffix reports whether host equals suffix or is a subdomain of it,
// e.g. "en.wikipedia.org" matches suffix "wikipedia.org".
func MatchesSuffix(host, suffix string) bool {
	host = strings.ToLower(host)
	suffix = strings.ToLower(suffix)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
