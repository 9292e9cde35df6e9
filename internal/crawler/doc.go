// Package crawler implements the crawl coordination engine: the URL
// frontier, the worker pool that drains it, the per-domain rate limiter,
// and the robots.txt compliance cache.
//
// # Architecture
//
// The package is designed around the Coordinator type, which owns one
// crawl run. Discovered URLs pass through the Frontier (dedup, depth
// ordering, page budget), workers gate every fetch through the
// RobotsCache and the RateLimiter, and each processed URL produces
// exactly one CrawlResult on the coordinator's result stream.
//
// HTTP transport and HTML parsing live behind the Fetcher and
// LinkExtractor interfaces; the engine itself never opens a socket.
//
// # Components
//
//   - Coordinator: lifecycle, worker pool, stats aggregation, termination
//   - Frontier: admission (dedup, depth bound, page budget) and
//     shallow-first dequeueing
//   - RateLimiter: per-domain minimum spacing between requests
//   - RobotsCache: robots.txt fetching, parsing, and TTL caching with
//     single-flight coalescing
//
// # Politeness
//
// Every fetch decision passes the politeness gates:
//   - robots.txt rules are evaluated with longest-match precedence
//   - requests to one domain are spaced at least the configured delay
//     apart, raised to the robots.txt Crawl-delay when one exists
//   - domains never block each other
//
// # Usage
//
//	coord := crawler.NewCoordinator(fetcher, extractor,
//		crawler.WithMaxDepth(3),
//		crawler.WithMaxPages(200),
//	)
//	report, err := coord.Run(ctx, []string{"https://example.com/"})
//
// # Termination
//
// A run ends when the frontier drains (backlog empty, nothing in
// flight), when the page budget is exhausted, or when the context is
// cancelled. Workers always finish the entry they hold; no page is
// abandoned mid-processing.
package crawler
