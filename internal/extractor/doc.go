// Package extractor parses fetched HTML and pulls out the pieces the
// crawl engine cares about: anchor hrefs resolved to absolute URLs, and
// the page title for reporting.
//
// Extraction is deliberately permissive. Real-world markup is messy, so
// the parser never rejects a document; at worst a page yields no links.
// Filtering is limited to targets that cannot be crawled (non-HTTP
// schemes, fragment-only anchors) or are known binary assets. Duplicate
// links are preserved because deduplication is the frontier's job.
package extractor
