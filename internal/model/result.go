package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome classifies how processing a frontier entry ended.
//
// Design decision: We use a single result struct with an outcome tag rather
// than separate types per outcome because:
// 1. Results flow through one channel and one sink, so a uniform shape keeps
//    the aggregation loop free of type switches
// 2. The tag serializes naturally for reports and database rows
// 3. Most fields (URL, depth, timing) are shared by all outcomes
type Outcome int

const (
	// OutcomeSuccess means the page was fetched and parsed. A page with
	// malformed HTML still counts as a success, with zero extracted links.
	OutcomeSuccess Outcome = iota

	// OutcomeSkipped means the page was intentionally not processed.
	// The SkipReason field records why. Skips are never retried.
	OutcomeSkipped

	// OutcomeFailed means fetching exhausted its retry budget or hit a
	// terminal HTTP error. Failures are final for that URL; it is never
	// re-queued in the frontier.
	OutcomeFailed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeSkipped:
		return "SKIPPED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the outcome as its string form so reports and
// database rows stay readable without a decoder table.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

// UnmarshalJSON parses the string form produced by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "SUCCESS":
		*o = OutcomeSuccess
	case "SKIPPED":
		*o = OutcomeSkipped
	case "FAILED":
		*o = OutcomeFailed
	default:
		return fmt.Errorf("unknown outcome %q", s)
	}
	return nil
}

// SkipReason records why a URL produced a skipped result.
type SkipReason int

const (
	// SkipNone is the zero value for results that are not skips.
	SkipNone SkipReason = iota

	// SkipRobotsDisallowed means robots.txt forbids fetching the URL.
	SkipRobotsDisallowed

	// SkipNotHTML means the response content type is not HTML.
	SkipNotHTML

	// SkipOversize means the response body exceeded the page size limit.
	SkipOversize

	// SkipDepthExceeded means the URL sits deeper than the depth limit.
	SkipDepthExceeded

	// SkipAlreadySeen means the URL was already admitted earlier in the run.
	SkipAlreadySeen
)

// String returns a human-readable representation of the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return ""
	case SkipRobotsDisallowed:
		return "robots_disallowed"
	case SkipNotHTML:
		return "not_html"
	case SkipOversize:
		return "oversize"
	case SkipDepthExceeded:
		return "depth_exceeded"
	case SkipAlreadySeen:
		return "already_seen"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the skip reason as its string form.
func (r SkipReason) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses the string form produced by MarshalJSON.
func (r *SkipReason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "":
		*r = SkipNone
	case "robots_disallowed":
		*r = SkipRobotsDisallowed
	case "not_html":
		*r = SkipNotHTML
	case "oversize":
		*r = SkipOversize
	case "depth_exceeded":
		*r = SkipDepthExceeded
	case "already_seen":
		*r = SkipAlreadySeen
	default:
		return fmt.Errorf("unknown skip reason %q", s)
	}
	return nil
}

// CrawlResult is the per-URL outcome a worker emits after processing one
// frontier entry. Exactly one result is emitted per popped entry.
type CrawlResult struct {
	// URL is the canonical URL the entry was admitted under.
	URL string `json:"url"`

	// FinalURL is the post-redirect URL the fetch landed on. Equal to URL
	// when no redirect occurred; empty when the URL was skipped before any
	// fetch happened.
	FinalURL string `json:"final_url,omitempty"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// Outcome tags the result as success, skip, or failure.
	Outcome Outcome `json:"outcome"`

	// SkipReason is set when Outcome is OutcomeSkipped.
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	// StatusCode is the HTTP status of the final response, when one was
	// received. Zero when the fetch never completed.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the page title for successful HTML fetches.
	Title string `json:"title,omitempty"`

	// Links holds the canonical URLs discovered on the page, duplicates
	// and all. Frontier admission decides which of them are fetched.
	Links []string `json:"links,omitempty"`

	// Bytes is the decoded body size in bytes.
	Bytes int64 `json:"bytes,omitempty"`

	// Error is the final error message when Outcome is OutcomeFailed.
	Error string `json:"error,omitempty"`

	// FetchedAt is when the worker started processing the entry.
	FetchedAt time.Time `json:"fetched_at"`

	// Duration is the total processing time including retries and
	// politeness waits.
	Duration time.Duration `json:"duration"`
}

// NewSuccessResult builds a success result for a fetched HTML page.
func NewSuccessResult(url string, depth int, statusCode int, title string, links []string, bytes int64) CrawlResult {
	return CrawlResult{
		URL:        url,
		Depth:      depth,
		Outcome:    OutcomeSuccess,
		StatusCode: statusCode,
		Title:      title,
		Links:      links,
		Bytes:      bytes,
	}
}

// NewSkippedResult builds a result for a URL that was deliberately not
// processed.
func NewSkippedResult(url string, depth int, reason SkipReason) CrawlResult {
	return CrawlResult{
		URL:        url,
		Depth:      depth,
		Outcome:    OutcomeSkipped,
		SkipReason: reason,
	}
}

// NewFailedResult builds a result for a URL whose fetch ended in a
// terminal error.
func NewFailedResult(url string, depth int, err error) CrawlResult {
	result := CrawlResult{
		URL:     url,
		Depth:   depth,
		Outcome: OutcomeFailed,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
