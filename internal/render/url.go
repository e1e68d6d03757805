package render

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultAlias is the reserved local page name that loads from disk.
const DefaultAlias = "cornerstone"

var schemes = []string{"http://", "https://", "file://", "about:", "data:", "chrome:"}

// ResolveURL turns user input into a loadable URL. A reserved alias maps to
// its local file, input without a scheme gets https:// prefixed, and input
// with a known scheme is returned as is.
func ResolveURL(target string, aliases map[string]string) (string, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "", errors.New("empty navigation target")
	}

	if path, ok := LookupAlias(t, aliases); ok {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}

	if HasScheme(t) {
		return t, nil
	}
	return "https://" + t, nil
}

// LookupAlias returns the file path for a reserved alias, matched
// case-insensitively.
func LookupAlias(target string, aliases map[string]string) (string, bool) {
	t := strings.TrimSpace(target)
	for name, path := range aliases {
		if strings.EqualFold(name, t) {
			return path, true
		}
	}
	return "", false
}

// HasScheme reports whether target starts with a scheme we load directly.
func HasScheme(target string) bool {
	lower := strings.ToLower(target)
	for _, s := range schemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// LooksLikeURL tells a URL apart from a free-text search query.
func LooksLikeURL(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" || strings.ContainsAny(t, " \t\n") {
		return false
	}
	if HasScheme(t) {
		return true
	}
	u, err := url.Parse("https://" + t)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || (strings.Contains(host, ".") && !strings.HasSuffix(host, "."))
}

// SearchURL builds a search engine query URL. DuckDuckGo unless engine
// names Google.
func SearchURL(query, engine string) string {
	q := url.QueryEscape(strings.TrimSpace(query))
	if strings.EqualFold(engine, "google") {
		return "https://www.google.com/search?q=" + q
	}
	return "https://duckduckgo.com/?q=" + q
}
