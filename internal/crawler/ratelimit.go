package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// delaySource supplies the authoritative crawl delay for a domain once
// robots.txt data is available. Implemented by RobotsCache; nil disables
// robots-driven delays.
type delaySource interface {
	CrawlDelay(domain string) (time.Duration, bool)
}

// RateLimiter spaces requests per domain. Every domain gets its own token
// bucket: the first request to a new domain is granted immediately,
// subsequent grants wait until the domain's minimum interval has elapsed.
// Domains never block each other; a slow host stalls only the workers
// that are fetching from it.
//
// The interval is re-resolved on every grant, so a Crawl-delay learned
// from robots.txt after the first request takes effect from the next
// grant on.
//
// Design decision: We use one rate.Limiter per domain with burst 1 rather
// than a lastRequestAt map with sleeps because:
// 1. Wait(ctx) handles cancellation for free
// 2. SetLimit adjusts the spacing in place when a crawl delay arrives
// 3. no lock is held while a worker sleeps out its interval
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// defaultDelay is the politeness floor applied to every domain.
	defaultDelay time.Duration

	// siteDelays replaces defaultDelay for specific domains, typically
	// loaded from the config file.
	siteDelays map[string]time.Duration

	// delays supplies robots.txt crawl delays. A robots delay only ever
	// raises the interval, never lowers it.
	delays delaySource
}

// NewRateLimiter creates a limiter with the given politeness floor.
// siteDelays and delays may be nil.
func NewRateLimiter(defaultDelay time.Duration, siteDelays map[string]time.Duration, delays delaySource) *RateLimiter {
	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultDelay: defaultDelay,
		siteDelays:   siteDelays,
		delays:       delays,
	}
}

// AwaitSlot blocks until the domain may be fetched again, or until ctx is
// cancelled. Consecutive grants for one domain are always at least the
// domain's minimum interval apart.
func (l *RateLimiter) AwaitSlot(ctx context.Context, domain string) error {
	interval := l.minInterval(domain)

	l.mu.Lock()
	limiter, ok := l.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
		l.limiters[domain] = limiter
	} else if limit := rate.Every(interval); limiter.Limit() != limit {
		limiter.SetLimit(limit)
	}
	l.mu.Unlock()

	// Wait outside the map lock: same-domain callers serialize inside
	// the limiter, other domains proceed untouched.
	return limiter.Wait(ctx)
}

// minInterval resolves the spacing for a domain: the site-specific delay
// when configured, otherwise the default, raised to the robots.txt crawl
// delay when that is larger.
func (l *RateLimiter) minInterval(domain string) time.Duration {
	interval := l.defaultDelay
	if siteDelay, ok := l.siteDelays[domain]; ok {
		interval = siteDelay
	}
	if l.delays != nil {
		if robotsDelay, ok := l.delays.CrawlDelay(domain); ok && robotsDelay > interval {
			interval = robotsDelay
		}
	}
	return interval
}
