package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// robotsTTL is how long a fetched ruleset stays valid. Hourly
	// refetches keep long crawls current without hammering /robots.txt.
	robotsTTL = time.Hour

	// robotsMaxAttempts bounds how many times a domain's robots.txt is
	// tried before the crawler assumes no restrictions.
	robotsMaxAttempts = 2

	// robotsFetchTimeout caps a single robots.txt fetch attempt.
	robotsFetchTimeout = 10 * time.Second
)

// RobotsRuleSet holds the parsed robots.txt rules that apply to this
// crawler for one domain. An empty ruleset allows everything, which is
// also what a missing or unreachable robots.txt produces.
type RobotsRuleSet struct {
	// Domain is the host the rules were fetched for.
	Domain string

	// FetchedAt is when the ruleset was obtained. It expires after
	// robotsTTL and is then refetched on next use.
	FetchedAt time.Time

	// AllowRules and DisallowRules are path prefixes from the user-agent
	// group that matched the crawler.
	AllowRules    []string
	DisallowRules []string

	// CrawlDelay is the group's Crawl-delay directive. Zero means none.
	CrawlDelay time.Duration
}

// IsAllowed evaluates the rules for a path using longest-match
// precedence: the longest matching Allow or Disallow prefix decides, and
// a tie between an Allow and a Disallow of equal length resolves as
// allowed. A path no rule matches is allowed.
func (r *RobotsRuleSet) IsAllowed(path string) bool {
	if path == "" {
		path = "/"
	}

	longestAllow, longestDisallow := -1, -1
	for _, rule := range r.AllowRules {
		if strings.HasPrefix(path, rule) && len(rule) > longestAllow {
			longestAllow = len(rule)
		}
	}
	for _, rule := range r.DisallowRules {
		if strings.HasPrefix(path, rule) && len(rule) > longestDisallow {
			longestDisallow = len(rule)
		}
	}
	return longestAllow >= longestDisallow
}

// RobotsCache fetches, parses, and caches per-domain robots.txt rulesets
// with a fixed TTL.
//
// Readers share an RWMutex-guarded map. Misses and expiries go through a
// singleflight group, so N workers asking about the same uncached domain
// cause exactly one fetch while the other N-1 wait for its result. A
// failed fetch caches an allow-all ruleset for the normal TTL; a broken
// robots endpoint must not stall the crawl.
type RobotsCache struct {
	mu    sync.RWMutex
	cache map[string]*RobotsRuleSet

	group     singleflight.Group
	fetcher   Fetcher
	userAgent string

	ttl         time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewRobotsCache creates an empty cache that fetches through fetcher and
// matches rule groups against userAgent.
func NewRobotsCache(fetcher Fetcher, userAgent string, logger *slog.Logger) *RobotsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsCache{
		cache:       make(map[string]*RobotsRuleSet),
		fetcher:     fetcher,
		userAgent:   userAgent,
		ttl:         robotsTTL,
		maxAttempts: robotsMaxAttempts,
		logger:      logger,
	}
}

// IsAllowed reports whether robots.txt permits fetching rawURL. The
// domain's ruleset is fetched on first use and refreshed after its TTL;
// the robots fetch itself is not rate limited.
func (c *RobotsCache) IsAllowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return c.rulesFor(ctx, u).IsAllowed(u.Path)
}

// CrawlDelay returns the cached crawl delay for a domain. It never
// triggers a fetch: the delay becomes available once IsAllowed has
// resolved the domain, which in the worker loop always happens first.
func (c *RobotsCache) CrawlDelay(domain string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules, ok := c.cache[domain]
	if !ok || rules.CrawlDelay <= 0 {
		return 0, false
	}
	return rules.CrawlDelay, true
}

// rulesFor returns the current ruleset for the URL's domain, fetching or
// refreshing it when needed.
func (c *RobotsCache) rulesFor(ctx context.Context, u *url.URL) *RobotsRuleSet {
	domain := u.Host

	c.mu.RLock()
	rules, ok := c.cache[domain]
	c.mu.RUnlock()
	if ok && time.Since(rules.FetchedAt) < c.ttl {
		return rules
	}

	// Coalesce concurrent fetches for the same domain into one flight.
	fresh, _, _ := c.group.Do(domain, func() (any, error) {
		// Re-check inside the flight: a caller that queued behind the
		// winner must not refetch what the winner just cached.
		c.mu.RLock()
		cached, ok := c.cache[domain]
		c.mu.RUnlock()
		if ok && time.Since(cached.FetchedAt) < c.ttl {
			return cached, nil
		}

		fetched := c.fetch(ctx, u.Scheme, domain)
		c.mu.Lock()
		c.cache[domain] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	return fresh.(*RobotsRuleSet)
}

// fetch retrieves and parses robots.txt for one domain. A 404 means the
// conventional "no restrictions"; other failures are retried up to the
// attempt budget and then also degrade to allow-all.
func (c *RobotsCache) fetch(ctx context.Context, scheme, domain string) *RobotsRuleSet {
	robotsURL := scheme + "://" + domain + "/robots.txt"

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, robotsFetchTimeout)
		resp, err := c.fetcher.Fetch(attemptCtx, robotsURL)
		cancel()

		switch {
		case err != nil:
			c.logger.Debug("robots.txt fetch failed",
				"domain", domain, "attempt", attempt, "error", err)
		case resp.StatusCode == http.StatusOK:
			rules := parseRobots(domain, resp.Body, c.userAgent)
			c.logger.Debug("robots.txt loaded",
				"domain", domain,
				"allow_rules", len(rules.AllowRules),
				"disallow_rules", len(rules.DisallowRules),
				"crawl_delay", rules.CrawlDelay)
			return rules
		case resp.StatusCode == http.StatusNotFound:
			// Absence means unrestricted access.
			return &RobotsRuleSet{Domain: domain, FetchedAt: time.Now()}
		default:
			c.logger.Debug("robots.txt returned unexpected status",
				"domain", domain, "attempt", attempt, "status", resp.StatusCode)
		}
	}

	return &RobotsRuleSet{Domain: domain, FetchedAt: time.Now()}
}

// parseRobots extracts the rule group that applies to userAgent from a
// robots.txt body. A group whose User-agent token appears in our user
// agent (case-insensitive) beats the wildcard "*" group; when only the
// wildcard matches, its rules apply. Rule values are used as plain path
// prefixes, the way the de facto standard treats them.
func parseRobots(domain string, body []byte, userAgent string) *RobotsRuleSet {
	rules := &RobotsRuleSet{Domain: domain, FetchedAt: time.Now()}

	loweredAgent := strings.ToLower(userAgent)
	var star, specific robotsGroup
	inStar, inSpecific := false, false
	specificSeen := false
	afterRule := true

	for line := range strings.Lines(string(body)) {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			// A User-agent line after rules starts a new group.
			if afterRule {
				inStar, inSpecific = false, false
				afterRule = false
			}
			token := strings.ToLower(value)
			if token == "*" {
				inStar = true
			} else if token != "" && strings.Contains(loweredAgent, token) {
				inSpecific = true
				specificSeen = true
			}
		case "allow":
			afterRule = true
			if path := rulePath(value); path != "" {
				if inSpecific {
					specific.allow = append(specific.allow, path)
				}
				if inStar {
					star.allow = append(star.allow, path)
				}
			}
		case "disallow":
			afterRule = true
			if path := rulePath(value); path != "" {
				if inSpecific {
					specific.disallow = append(specific.disallow, path)
				}
				if inStar {
					star.disallow = append(star.disallow, path)
				}
			}
		case "crawl-delay":
			afterRule = true
			if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds > 0 {
				delay := time.Duration(seconds * float64(time.Second))
				if inSpecific {
					specific.crawlDelay = delay
				}
				if inStar {
					star.crawlDelay = delay
				}
			}
		}
	}

	group := star
	if specificSeen {
		group = specific
	}
	rules.AllowRules = group.allow
	rules.DisallowRules = group.disallow
	rules.CrawlDelay = group.crawlDelay
	return rules
}

// robotsGroup accumulates the directives of one user-agent group while
// parsing.
type robotsGroup struct {
	allow      []string
	disallow   []string
	crawlDelay time.Duration
}

// rulePath normalizes a rule value to a path prefix. An empty value means
// "no rule" per convention (notably "Disallow:" alone allows everything),
// and a missing leading slash is supplied.
func rulePath(value string) string {
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "/") {
		return "/" + value
	}
	return value
}
