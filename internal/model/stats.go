package model

import (
	"sync/atomic"
	"time"
)

// CrawlStats tracks monotonic counters for a single crawl run.
//
// Design decision: The coordinator's aggregation loop is the only writer
// (it consumes the worker result stream), but the counters are atomics
// because progress logging and tests read snapshots while the crawl is
// still running. Single-writer plus atomic loads keeps readers race-free
// without a mutex.
type CrawlStats struct {
	pagesCrawled    atomic.Int64
	pagesFailed     atomic.Int64
	pagesSkipped    atomic.Int64
	linksFound      atomic.Int64
	bytesDownloaded atomic.Int64

	// startedAt is written once before workers start.
	startedAt time.Time
}

// NewCrawlStats creates stats with the clock started now.
func NewCrawlStats() *CrawlStats {
	return &CrawlStats{startedAt: time.Now()}
}

// Record updates the counters for one crawl result.
func (s *CrawlStats) Record(result CrawlResult) {
	switch result.Outcome {
	case OutcomeSuccess:
		s.pagesCrawled.Add(1)
		s.linksFound.Add(int64(len(result.Links)))
		s.bytesDownloaded.Add(result.Bytes)
	case OutcomeFailed:
		s.pagesFailed.Add(1)
	case OutcomeSkipped:
		s.pagesSkipped.Add(1)
	}
}

// PagesCrawled returns the number of successfully fetched pages.
func (s *CrawlStats) PagesCrawled() int64 { return s.pagesCrawled.Load() }

// PagesFailed returns the number of terminally failed pages.
func (s *CrawlStats) PagesFailed() int64 { return s.pagesFailed.Load() }

// PagesSkipped returns the number of skipped pages.
func (s *CrawlStats) PagesSkipped() int64 { return s.pagesSkipped.Load() }

// LinksFound returns the total number of links discovered on fetched pages.
func (s *CrawlStats) LinksFound() int64 { return s.linksFound.Load() }

// BytesDownloaded returns the total decoded body bytes fetched.
func (s *CrawlStats) BytesDownloaded() int64 { return s.bytesDownloaded.Load() }

// Snapshot returns a point-in-time copy of the counters suitable for
// serialization and report output.
func (s *CrawlStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PagesCrawled:    s.pagesCrawled.Load(),
		PagesFailed:     s.pagesFailed.Load(),
		PagesSkipped:    s.pagesSkipped.Load(),
		LinksFound:      s.linksFound.Load(),
		BytesDownloaded: s.bytesDownloaded.Load(),
		Elapsed:         time.Since(s.startedAt),
	}
}

// StatsSnapshot is an immutable copy of CrawlStats counters.
type StatsSnapshot struct {
	// PagesCrawled is the number of successfully fetched pages.
	PagesCrawled int64 `json:"pages_crawled"`

	// PagesFailed is the number of pages whose fetch ended in a terminal
	// error after retries.
	PagesFailed int64 `json:"pages_failed"`

	// PagesSkipped is the number of pages skipped for politeness or
	// content reasons.
	PagesSkipped int64 `json:"pages_skipped"`

	// LinksFound is the total number of links discovered, before
	// deduplication by the frontier.
	LinksFound int64 `json:"links_found"`

	// BytesDownloaded is the total decoded body size across all
	// successful fetches.
	BytesDownloaded int64 `json:"bytes_downloaded"`

	// Elapsed is the wall-clock time covered by the snapshot.
	Elapsed time.Duration `json:"elapsed"`
}

// PagesPerSecond returns the crawl rate over the snapshot window.
// Zero when no time has elapsed.
func (s StatsSnapshot) PagesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.PagesCrawled) / s.Elapsed.Seconds()
}

// TotalProcessed returns the number of entries that produced any result.
func (s StatsSnapshot) TotalProcessed() int64 {
	return s.PagesCrawled + s.PagesFailed + s.PagesSkipped
}
