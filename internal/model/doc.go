// Package model defines the core data structures shared across the crawler.
//
// This package contains the following main types:
//   - URLEntry: A frontier entry awaiting fetch
//   - CrawlResult: The per-URL outcome emitted by a worker
//   - CrawlStats: Monotonic counters for a crawl run
//   - CrawlReport: The final summary of a completed run
//   - FetchResponse: The transport-level result of one HTTP attempt
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, fetcher, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
