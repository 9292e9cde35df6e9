package model

// URLEntry is a unit of work in the URL frontier: a canonical URL paired
// with the depth at which it was discovered. Entries are immutable after
// creation; the frontier and workers pass them by value.
type URLEntry struct {
	// URL is the canonical absolute URL to fetch.
	URL string `json:"url"`

	// Depth is the link distance from the seed. Seeds are depth 0.
	Depth int `json:"depth"`

	// DiscoveredFrom is the canonical URL of the page that linked here.
	// Empty for seeds.
	DiscoveredFrom string `json:"discovered_from,omitempty"`
}

// NewURLEntry creates a frontier entry for a discovered URL.
func NewURLEntry(url string, depth int, discoveredFrom string) URLEntry {
	return URLEntry{
		URL:            url,
		Depth:          depth,
		DiscoveredFrom: discoveredFrom,
	}
}

// IsSeed reports whether the entry is a crawl seed rather than a
// discovered link.
func (e URLEntry) IsSeed() bool {
	return e.Depth == 0 && e.DiscoveredFrom == ""
}
