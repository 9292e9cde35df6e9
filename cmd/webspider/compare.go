package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/webspider/internal/config"
	"github.com/nao1215/webspider/internal/crawler"
	"github.com/nao1215/webspider/internal/database"
	"github.com/nao1215/webspider/internal/model"
	"github.com/spf13/cobra"
)

// Constants for crawl change direction.
const (
	changeDirectionWorsened  = "worsened"
	changeDirectionImproved  = "improved"
	changeDirectionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares crawl results with historical runs stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare two crawl runs stored in the database",
		Long: `Compare displays differences between two stored crawl runs.

This command retrieves historical crawl data from the database and shows:
- Pages that appeared since the previous run
- Pages that disappeared from the site
- Pages that started failing, and pages that recovered
- Changes in the aggregate crawl counters

Without arguments the two newest stored runs are compared. With a URL
argument only runs seeded from that URL are considered. The comparison
requires at least two matching runs; use 'webspider crawl' to record
runs and 'webspider history' to list them.

Examples:
  # Compare the latest two runs of a site
  webspider compare https://example.com

  # Compare the latest run with a specific historical run by ID
  webspider compare --with-run-id 5 https://example.com

  # Compare the two newest runs regardless of seed
  webspider compare

  # Output the comparison in JSON format
  webspider compare --json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare the latest run with a specific run by ID (see 'webspider history' for IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	// Database location flag
	cmd.Flags().String("db", "",
		"Directory holding the crawl database (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Canonicalize the optional seed filter before opening the database
	// so an invalid URL fails fast.
	var seed string
	if len(args) == 1 {
		canonical, err := crawler.Canonicalize(args[0])
		if err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", args[0], err)
		}
		seed = canonical
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	return runComparison(ctx, db, seed, withRunID, jsonOutput, markdownOutput)
}

// runComparison performs the actual comparison between two stored runs.
func runComparison(ctx context.Context, db *database.CrawlDB, seed string, withRunID int64, jsonOutput, markdownOutput bool) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	// Narrow to runs seeded from the requested URL. Runs are sorted
	// newest first, so the first match is the current run.
	candidates := runs
	if seed != "" {
		candidates = nil
		for _, run := range runs {
			if slices.Contains(run.Seeds, seed) {
				candidates = append(candidates, run)
			}
		}
	}

	if len(candidates) == 0 {
		if seed != "" {
			return fmt.Errorf("no crawl runs found for %s", seed)
		}
		return fmt.Errorf("no crawl runs found in the database")
	}

	if len(candidates) < 2 && withRunID == 0 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(candidates))
	}

	// Determine which runs to compare. The latest run is always the
	// current one.
	currentID := candidates[0].ID
	var previousID int64
	if withRunID > 0 {
		if withRunID == currentID {
			return fmt.Errorf("run %d is the latest run; pick an older run to compare against", withRunID)
		}
		previousID = withRunID
	} else {
		previousID = candidates[1].ID
	}

	currentReport, err := loadRunReport(ctx, db, currentID)
	if err != nil {
		return err
	}
	previousReport, err := loadRunReport(ctx, db, previousID)
	if err != nil {
		return err
	}

	// Validate that the requested run crawled the same site.
	if seed != "" && !slices.Contains(previousReport.Seeds, seed) {
		return fmt.Errorf("run %d did not crawl %s (seeds: %s)",
			previousID, seed, strings.Join(previousReport.Seeds, ", "))
	}

	comparison := compareRuns(previousID, currentID, previousReport, currentReport, seed)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// loadRunReport fetches a run's stored report and turns the absent case
// into a descriptive error.
func loadRunReport(ctx context.Context, db *database.CrawlDB, runID int64) (*model.CrawlReport, error) {
	crawlReport, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report for run %d: %w", runID, err)
	}
	if crawlReport == nil {
		return nil, fmt.Errorf("run %d has no stored report; interrupted runs cannot be compared", runID)
	}
	return crawlReport, nil
}

// ComparisonResult holds the result of comparing two crawl runs.
type ComparisonResult struct {
	// Seed is the canonical seed URL the comparison was filtered by.
	// Empty when the two newest runs were compared regardless of seed.
	Seed string `json:"seed,omitempty"`

	// PreviousRun contains headline numbers of the older run.
	PreviousRun RunOverview `json:"previous_run"`

	// CurrentRun contains headline numbers of the newer run.
	CurrentRun RunOverview `json:"current_run"`

	// NewPages contains pages that appear only in the current run.
	NewPages []PageDiff `json:"new_pages,omitempty"`

	// RemovedPages contains pages that appear only in the previous run.
	RemovedPages []PageDiff `json:"removed_pages,omitempty"`

	// NewlyFailing contains pages that failed in the current run but not
	// in the previous one.
	NewlyFailing []PageDiff `json:"newly_failing,omitempty"`

	// RecoveredPages contains pages that failed in the previous run and
	// no longer fail.
	RecoveredPages []PageDiff `json:"recovered_pages,omitempty"`

	// UnchangedCount is the number of pages present in both runs with no
	// failure transition.
	UnchangedCount int `json:"unchanged_count"`

	// Change describes the overall movement of the crawl counters.
	Change CrawlChange `json:"change"`
}

// RunOverview contains metadata about one run for comparison display.
type RunOverview struct {
	// RunID is the run's identifier in the database.
	RunID int64 `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// PagesCrawled is the number of successfully fetched pages.
	PagesCrawled int64 `json:"pages_crawled"`

	// PagesFailed is the number of pages that failed after retries.
	PagesFailed int64 `json:"pages_failed"`

	// PagesSkipped is the number of pages skipped before fetching.
	PagesSkipped int64 `json:"pages_skipped"`

	// LinksFound is the total number of links discovered.
	LinksFound int64 `json:"links_found"`

	// BytesDownloaded is the total decoded body size.
	BytesDownloaded int64 `json:"bytes_downloaded"`
}

// PageDiff describes one page in a comparison category.
type PageDiff struct {
	// URL is the canonical page URL.
	URL string `json:"url"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// Outcome is the page's outcome in the run the category refers to.
	Outcome string `json:"outcome"`

	// Detail carries the error message or skip reason, when present.
	Detail string `json:"detail,omitempty"`
}

// CrawlChange describes the movement of the aggregate counters between runs.
type CrawlChange struct {
	// Direction is "improved", "worsened", or "unchanged". It follows
	// the failure count, which is what operators watch between runs.
	Direction string `json:"direction"`

	// CrawledDelta is the change in successfully crawled pages.
	CrawledDelta int64 `json:"crawled_delta"`

	// FailedDelta is the change in failed pages.
	FailedDelta int64 `json:"failed_delta"`

	// SkippedDelta is the change in skipped pages.
	SkippedDelta int64 `json:"skipped_delta"`

	// LinksDelta is the change in discovered links.
	LinksDelta int64 `json:"links_delta"`

	// BytesDelta is the change in downloaded bytes.
	BytesDelta int64 `json:"bytes_delta"`
}

// compareRuns compares two crawl reports and generates a comparison result.
func compareRuns(previousID, currentID int64, previous, current *model.CrawlReport, seed string) *ComparisonResult {
	result := &ComparisonResult{
		Seed:        seed,
		PreviousRun: runOverview(previousID, previous),
		CurrentRun:  runOverview(currentID, current),
	}

	previousPages := pagesByURL(previous)
	currentPages := pagesByURL(current)

	for url, page := range currentPages {
		prev, exists := previousPages[url]
		if !exists {
			result.NewPages = append(result.NewPages, pageDiff(page))
			continue
		}
		switch {
		case page.Outcome == model.OutcomeFailed && prev.Outcome != model.OutcomeFailed:
			result.NewlyFailing = append(result.NewlyFailing, pageDiff(page))
		case page.Outcome != model.OutcomeFailed && prev.Outcome == model.OutcomeFailed:
			result.RecoveredPages = append(result.RecoveredPages, pageDiff(page))
		default:
			result.UnchangedCount++
		}
	}

	for url, page := range previousPages {
		if _, exists := currentPages[url]; !exists {
			result.RemovedPages = append(result.RemovedPages, pageDiff(page))
		}
	}

	// Map iteration order is random; sort each category so text output
	// and JSON stay stable across invocations.
	sortPageDiffs(result.NewPages)
	sortPageDiffs(result.RemovedPages)
	sortPageDiffs(result.NewlyFailing)
	sortPageDiffs(result.RecoveredPages)

	result.Change = calculateCrawlChange(result.PreviousRun, result.CurrentRun)

	return result
}

// runOverview extracts the headline numbers of one run.
func runOverview(runID int64, crawlReport *model.CrawlReport) RunOverview {
	return RunOverview{
		RunID:           runID,
		StartedAt:       crawlReport.StartedAt,
		PagesCrawled:    crawlReport.Stats.PagesCrawled,
		PagesFailed:     crawlReport.Stats.PagesFailed,
		PagesSkipped:    crawlReport.Stats.PagesSkipped,
		LinksFound:      crawlReport.Stats.LinksFound,
		BytesDownloaded: crawlReport.Stats.BytesDownloaded,
	}
}

// pagesByURL indexes a report's results by canonical URL. Later results
// win, so a duplicate-seed skip never shadows the real fetch of the
// same URL.
func pagesByURL(crawlReport *model.CrawlReport) map[string]model.CrawlResult {
	pages := make(map[string]model.CrawlResult, len(crawlReport.Results))
	for _, result := range crawlReport.Results {
		pages[result.URL] = result
	}
	return pages
}

// pageDiff converts a crawl result into its comparison representation.
func pageDiff(result model.CrawlResult) PageDiff {
	diff := PageDiff{
		URL:     result.URL,
		Depth:   result.Depth,
		Outcome: result.Outcome.String(),
	}
	switch result.Outcome {
	case model.OutcomeFailed:
		diff.Detail = result.Error
	case model.OutcomeSkipped:
		diff.Detail = result.SkipReason.String()
	}
	return diff
}

// sortPageDiffs orders a comparison category by URL.
func sortPageDiffs(diffs []PageDiff) {
	slices.SortFunc(diffs, func(a, b PageDiff) int {
		return strings.Compare(a.URL, b.URL)
	})
}

// calculateCrawlChange calculates the counter movement between two runs.
func calculateCrawlChange(previous, current RunOverview) CrawlChange {
	change := CrawlChange{
		CrawledDelta: current.PagesCrawled - previous.PagesCrawled,
		FailedDelta:  current.PagesFailed - previous.PagesFailed,
		SkippedDelta: current.PagesSkipped - previous.PagesSkipped,
		LinksDelta:   current.LinksFound - previous.LinksFound,
		BytesDelta:   current.BytesDownloaded - previous.BytesDownloaded,
	}

	switch {
	case change.FailedDelta < 0:
		change.Direction = changeDirectionImproved
	case change.FailedDelta > 0:
		change.Direction = changeDirectionWorsened
	default:
		change.Direction = changeDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	if result.Seed != "" {
		fmt.Printf("# Run Comparison: %s\n\n", result.Seed)
	} else {
		fmt.Print("# Run Comparison\n\n")
	}

	// Counter change summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Crawl Health:** %s\n\n", formatChangeDirection(result.Change.Direction))

	// Run metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Run | #%d | #%d | - |\n",
		result.PreviousRun.RunID,
		result.CurrentRun.RunID)
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04"),
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04"))
	fmt.Printf("| Crawled | %d | %d | %s |\n",
		result.PreviousRun.PagesCrawled,
		result.CurrentRun.PagesCrawled,
		formatDelta(result.Change.CrawledDelta))
	fmt.Printf("| Failed | %d | %d | %s |\n",
		result.PreviousRun.PagesFailed,
		result.CurrentRun.PagesFailed,
		formatDelta(result.Change.FailedDelta))
	fmt.Printf("| Skipped | %d | %d | %s |\n",
		result.PreviousRun.PagesSkipped,
		result.CurrentRun.PagesSkipped,
		formatDelta(result.Change.SkippedDelta))
	fmt.Printf("| Links | %d | %d | %s |\n",
		result.PreviousRun.LinksFound,
		result.CurrentRun.LinksFound,
		formatDelta(result.Change.LinksDelta))
	fmt.Printf("| Bytes | %d | %d | %s |\n",
		result.PreviousRun.BytesDownloaded,
		result.CurrentRun.BytesDownloaded,
		formatDelta(result.Change.BytesDelta))

	// New pages
	if len(result.NewPages) > 0 {
		fmt.Printf("\n## New Pages (%d)\n\n", len(result.NewPages))
		for _, page := range result.NewPages {
			fmt.Printf("- **%s** (depth %d, %s)\n", page.URL, page.Depth, page.Outcome)
		}
	}

	// Removed pages
	if len(result.RemovedPages) > 0 {
		fmt.Printf("\n## Removed Pages (%d)\n\n", len(result.RemovedPages))
		for _, page := range result.RemovedPages {
			fmt.Printf("- ~~%s~~ (depth %d)\n", page.URL, page.Depth)
		}
	}

	// Newly failing pages
	if len(result.NewlyFailing) > 0 {
		fmt.Printf("\n## Newly Failing (%d)\n\n", len(result.NewlyFailing))
		for _, page := range result.NewlyFailing {
			fmt.Printf("- **%s**: %s\n", page.URL, page.Detail)
		}
	}

	// Recovered pages
	if len(result.RecoveredPages) > 0 {
		fmt.Printf("\n## Recovered (%d)\n\n", len(result.RecoveredPages))
		for _, page := range result.RecoveredPages {
			fmt.Printf("- **%s** (now %s)\n", page.URL, page.Outcome)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d pages unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	if result.Seed != "" {
		fmt.Printf("Run Comparison: %s\n", result.Seed)
	} else {
		fmt.Println("Run Comparison")
	}
	fmt.Println(strings.Repeat("=", 60))

	// Counter change summary
	fmt.Printf("\nCrawl Health: %s\n", formatChangeDirection(result.Change.Direction))

	// Run dates
	fmt.Printf("\nPrevious run: #%d at %s\n",
		result.PreviousRun.RunID,
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current run:  #%d at %s\n",
		result.CurrentRun.RunID,
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"))

	// Summary table
	fmt.Println("\nCrawl Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Counter", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Crawled",
		result.PreviousRun.PagesCrawled, result.CurrentRun.PagesCrawled,
		formatDelta(result.Change.CrawledDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Failed",
		result.PreviousRun.PagesFailed, result.CurrentRun.PagesFailed,
		formatDelta(result.Change.FailedDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Skipped",
		result.PreviousRun.PagesSkipped, result.CurrentRun.PagesSkipped,
		formatDelta(result.Change.SkippedDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Links",
		result.PreviousRun.LinksFound, result.CurrentRun.LinksFound,
		formatDelta(result.Change.LinksDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Bytes",
		result.PreviousRun.BytesDownloaded, result.CurrentRun.BytesDownloaded,
		formatDelta(result.Change.BytesDelta))

	// New pages
	if len(result.NewPages) > 0 {
		fmt.Printf("\nNew Pages (%d):\n", len(result.NewPages))
		for _, page := range result.NewPages {
			fmt.Printf("  [+] %s (depth %d, %s)\n", page.URL, page.Depth, page.Outcome)
			if page.Detail != "" {
				fmt.Printf("      %s\n", page.Detail)
			}
		}
	}

	// Removed pages
	if len(result.RemovedPages) > 0 {
		fmt.Printf("\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, page := range result.RemovedPages {
			fmt.Printf("  [-] %s (depth %d)\n", page.URL, page.Depth)
		}
	}

	// Newly failing pages
	if len(result.NewlyFailing) > 0 {
		fmt.Printf("\nNewly Failing (%d):\n", len(result.NewlyFailing))
		for _, page := range result.NewlyFailing {
			fmt.Printf("  [x] %s\n", page.URL)
			if page.Detail != "" {
				fmt.Printf("      %s\n", page.Detail)
			}
		}
	}

	// Recovered pages
	if len(result.RecoveredPages) > 0 {
		fmt.Printf("\nRecovered (%d):\n", len(result.RecoveredPages))
		for _, page := range result.RecoveredPages {
			fmt.Printf("  [+] %s (now %s)\n", page.URL, page.Outcome)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d pages\n", result.UnchangedCount)
	}

	return nil
}

// formatChangeDirection formats the crawl change direction for display.
func formatChangeDirection(direction string) string {
	switch direction {
	case changeDirectionImproved:
		return "IMPROVED (fewer failures)"
	case changeDirectionWorsened:
		return "WORSENED (more failures)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int64) string {
	if delta > 0 {
		return "+" + strconv.FormatInt(delta, 10)
	} else if delta < 0 {
		return strconv.FormatInt(delta, 10)
	}
	return "0"
}
