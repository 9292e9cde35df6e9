package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen for polite, predictable crawling of ordinary
// websites; all of them can be overridden via CLI flags.
const (
	// DefaultMaxPages caps the number of pages fetched in one run.
	// This prevents runaway crawls on large or infinitely-generating
	// sites. 1000 pages covers most small and medium sites completely.
	DefaultMaxPages = 1000

	// DefaultMaxDepth is how many links away from a seed the crawl
	// follows. Depth 0 means only the seed pages themselves. Five hops
	// reach essentially all of a typical site's navigable content.
	DefaultMaxDepth = 5

	// DefaultWorkers is the number of concurrent fetch workers. Eight
	// keeps several domains busy at once; per-domain politeness is
	// enforced separately by the rate limiter, so more workers never
	// means hammering a single host harder.
	DefaultWorkers = 8

	// DefaultCrawlDelay is the minimum interval between requests to the
	// same domain. One second is conservative and respectful of server
	// resources. robots.txt Crawl-delay directives can raise it further.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultRequestTimeout bounds a single fetch attempt. Thirty
	// seconds is generous for ordinary sites while keeping a stuck
	// server from pinning a worker indefinitely.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxRetries is how many extra attempts a transient fetch
	// failure gets before the page is recorded as failed.
	DefaultMaxRetries = 3

	// DefaultMaxBodySize limits how much of a response body is read.
	// 10MB is far beyond any sane HTML page while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies the crawler in HTTP requests and is
	// matched against robots.txt groups. A descriptive User-Agent lets
	// operators identify crawler traffic in their logs.
	DefaultUserAgent = "webspider/1.0"

	// AppName is the application name used for XDG directory paths.
	AppName = "webspider"
)

// Config holds all configuration options for a crawl run.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit.
type Config struct {
	// Seeds is the list of URLs the crawl starts from.
	// Must contain at least one http or https URL.
	Seeds []string

	// MaxPages caps the number of pages fetched in one run, seeds
	// included. Once reached, no new URLs are admitted.
	MaxPages int

	// MaxDepth is how many links away from a seed the crawl follows.
	// Depth 0 means only the seed pages themselves.
	MaxDepth int

	// Workers is the number of concurrent fetch workers.
	Workers int

	// CrawlDelay is the minimum interval between requests to the same
	// domain. Per-site overrides from the config file and robots.txt
	// Crawl-delay directives can change the effective interval.
	CrawlDelay time.Duration

	// RequestTimeout bounds a single fetch attempt, not the whole run.
	RequestTimeout time.Duration

	// MaxRetries is how many extra attempts a transient fetch failure
	// gets before the page is recorded as failed.
	MaxRetries int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger responses are recorded as oversize skips.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request and
	// the token matched against robots.txt groups.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .webspider in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	// This is populated by LoadConfigFile and used to derive per-domain
	// crawl delays.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, crawl results are saved for later inspection with the
	// history command. When empty, results are not persisted.
	DBDir string

	// SaveToDB indicates whether to save crawl results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, page
// budget). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		MaxDepth:       DefaultMaxDepth,
		Workers:        DefaultWorkers,
		CrawlDelay:     DefaultCrawlDelay,
		RequestTimeout: DefaultRequestTimeout,
		MaxRetries:     DefaultMaxRetries,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for webspider.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/webspider
// On macOS: ~/Library/Application Support/webspider
// On Windows: %LOCALAPPDATA%\webspider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webspider.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/webspider
// On macOS: ~/Library/Application Support/webspider
// On Windows: %APPDATA%\webspider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for webspider.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/webspider
// On macOS: ~/Library/Caches/webspider
// On Windows: %LOCALAPPDATA%\webspider\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one seed URL to crawl
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	// MaxPages must be positive; a zero budget would admit nothing
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	// MaxDepth must be non-negative; 0 means seeds only
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	// Workers must be positive; zero workers would mean no crawling
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	// RequestTimeout must be positive; zero would fail every fetch
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// CrawlDelay must be non-negative; use 0 for no delay
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	// MaxRetries must be non-negative; 0 disables retries
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	// MaxBodySize must be non-negative; use 0 to keep the default limit
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
