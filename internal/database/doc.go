// Package database provides SQLite-based storage for webspider.
//
// This package implements the CrawlDB, which stores:
//   - Crawl runs with their seeds, final state, and summary counters
//   - Per-URL page results streamed in while the crawl is running
//   - Complete crawl reports as JSON for the history command
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
