package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CrawlState describes where a crawl run is in its lifecycle.
//
// Design decision: We use iota-based constants rather than string constants
// for cheap atomic storage in the coordinator. The String() method provides
// human-readable output for logs and reports.
type CrawlState int

const (
	// StateIdle means the coordinator was created but Run has not been
	// called yet.
	StateIdle CrawlState = iota

	// StateRunning means workers are actively draining the frontier.
	StateRunning

	// StateDraining means termination was signaled and workers are
	// finishing the entries they already hold. No new entries are popped.
	StateDraining

	// StateCompleted means all workers have exited and final stats are
	// available. A crawl run is one-shot; a completed coordinator cannot
	// be restarted.
	StateCompleted
)

// String returns a human-readable representation of the crawl state.
func (s CrawlState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the state as its string form.
func (s CrawlState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the string form produced by MarshalJSON, so
// stored reports can be loaded back.
func (s *CrawlState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "IDLE":
		*s = StateIdle
	case "RUNNING":
		*s = StateRunning
	case "DRAINING":
		*s = StateDraining
	case "COMPLETED":
		*s = StateCompleted
	default:
		return fmt.Errorf("unknown crawl state %q", str)
	}
	return nil
}

// CrawlReport is the final summary of a crawl run: seed list, timing,
// aggregated counters, and the per-URL results in completion order.
//
// Design decision: We keep per-URL results inside the report rather than
// streaming them only to the sink because:
// 1. Report writers (JSON, Markdown, text) need the full list for tables
// 2. Runs are bounded by maxPages, so the list is bounded too
// 3. The database sink still receives results as they happen; the report
//    is assembled once at the end
type CrawlReport struct {
	// Seeds are the canonical seed URLs the run started from.
	Seeds []string `json:"seeds"`

	// UserAgent is the identity the crawler presented to servers.
	UserAgent string `json:"user_agent"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last worker exited.
	FinishedAt time.Time `json:"finished_at"`

	// Duration is FinishedAt minus StartedAt.
	Duration time.Duration `json:"duration"`

	// State is the final lifecycle state, normally COMPLETED.
	State CrawlState `json:"state"`

	// BudgetReached is true when the run ended because the page budget
	// was exhausted rather than because the frontier drained.
	BudgetReached bool `json:"budget_reached"`

	// Admitted is the number of URLs accepted into the frontier,
	// seeds included.
	Admitted int `json:"admitted"`

	// Stats holds the aggregated counters for the run.
	Stats StatsSnapshot `json:"stats"`

	// Results lists every per-URL outcome in completion order.
	Results []CrawlResult `json:"results,omitempty"`
}

// NewCrawlReport creates a report shell for a run starting now.
func NewCrawlReport(seeds []string, userAgent string) *CrawlReport {
	return &CrawlReport{
		Seeds:     seeds,
		UserAgent: userAgent,
		StartedAt: time.Now(),
		State:     StateIdle,
	}
}

// Finish stamps the end of the run and freezes timing and counters.
func (r *CrawlReport) Finish(state CrawlState, stats StatsSnapshot) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.State = state
	r.Stats = stats
}

// PagesPerSecond returns the overall crawl rate for the run.
func (r *CrawlReport) PagesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Stats.PagesCrawled) / r.Duration.Seconds()
}

// ResultsByOutcome returns the results with the given outcome, preserving
// completion order. Report writers use it to group output sections.
func (r *CrawlReport) ResultsByOutcome(outcome Outcome) []CrawlResult {
	var matched []CrawlResult
	for _, result := range r.Results {
		if result.Outcome == outcome {
			matched = append(matched, result)
		}
	}
	return matched
}

// HasFailures reports whether any URL ended in a terminal failure.
func (r *CrawlReport) HasFailures() bool {
	return r.Stats.PagesFailed > 0
}
