// Package fetcher implements the HTTP transport for the crawler.
//
// HTTPFetcher performs single-attempt GET requests: it follows redirects
// up to a bound, decodes gzip, deflate, and brotli response bodies, and
// enforces the page size cap while reading. Every HTTP status that
// arrives is handed back as a response; only transport failures and
// oversized bodies surface as errors, typed so the crawl engine can
// classify them.
//
// # Usage
//
//	f := fetcher.NewHTTPFetcher(
//		fetcher.WithUserAgent("webspider/1.0 (+https://example.com/bot)"),
//		fetcher.WithMaxBodySize(10<<20),
//	)
//	resp, err := f.Fetch(ctx, "https://example.com/")
//
// Retries, politeness delays, and robots.txt checks are the crawl
// engine's responsibility; the fetcher stays a dumb pipe.
package fetcher
