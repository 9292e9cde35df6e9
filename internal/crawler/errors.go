package crawler

import "errors"

// Crawl setup errors.
// These are the only fatal errors in the package: everything that happens
// after Run has started (fetch failures, robots denials, parse problems)
// is local to one URL and surfaces as a CrawlResult instead.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances inline. This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrUnsupportedScheme is returned when a URL uses a scheme other than
	// http or https. The crawler only speaks HTTP.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https are crawled")

	// ErrEmptyHost is returned when a URL has no host component.
	// Relative URLs must be resolved against a base before admission.
	ErrEmptyHost = errors.New("URL has no host")

	// ErrNoSeeds is returned when Run is called without any seed URLs.
	ErrNoSeeds = errors.New("no seed URLs: provide at least one starting URL")

	// ErrNoWorkers is returned when the coordinator is configured with
	// fewer than one worker. Zero workers would never drain the frontier.
	ErrNoWorkers = errors.New("invalid worker count: must be at least one")

	// ErrAlreadyRan is returned when Run is called twice on the same
	// coordinator. A crawl run is one-shot; build a new coordinator for
	// the next run.
	ErrAlreadyRan = errors.New("coordinator has already run")
)
