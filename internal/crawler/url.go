package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize reduces an absolute URL to the canonical form the frontier
// uses as its dedup key:
//   - scheme and host lowercased
//   - default ports stripped (:80 for http, :443 for https)
//   - fragment removed
//   - empty path replaced with "/"
//   - a single trailing slash stripped from non-root paths
//
// The trailing-slash rule means "http://example.com/a/" and
// "http://example.com/a" admit as one page while the root URL keeps its
// slash. Query strings are preserved byte-for-byte; reordering parameters
// could merge genuinely different resources.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", rawURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyHost, rawURL)
	}
	if port := u.Port(); port != "" && port != defaultPort(scheme) {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	switch {
	case u.Path == "":
		u.Path = "/"
	case len(u.Path) > 1 && strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimSuffix(u.Path, "/")
		// Keep the escaped form consistent with the trimmed path.
		if strings.HasSuffix(u.RawPath, "/") {
			u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		}
	}

	return u.String(), nil
}

// defaultPort returns the implied port for a scheme.
func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

// domainOf returns the politeness key for a canonical URL: its host with
// the port included when non-default. Canonical URLs always parse, so a
// failure falls back to the raw string rather than panicking.
func domainOf(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return canonicalURL
	}
	return u.Host
}
