// Package main provides the entry point for the webspider CLI.
//
// Webspider is a polite concurrent web crawler. It fetches pages breadth
// first from one or more seed URLs while honoring robots.txt rules and
// per-domain rate limits.
//
// Usage:
//
//	webspider crawl <url>
//	webspider crawl --max-pages 100 <url> <url>
//
// See --help for all available options.
package main

// main is the entry point for webspider.
func main() {
	Execute()
}
