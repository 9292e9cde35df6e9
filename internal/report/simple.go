package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/webspider/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with outcome indicators
// and clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no pages are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	return w.write(report, true)
}

// WriteSummary outputs the run header and counters without the page
// listing.
func (w *SimpleWriter) WriteSummary(report *model.CrawlReport) (int, error) {
	return w.write(report, false)
}

func (w *SimpleWriter) write(report *model.CrawlReport, includePages bool) (int, error) {
	var sb strings.Builder

	// Header
	w.writeHeader(&sb, report)

	// Summary
	w.writeSummary(&sb, report)

	// Per-page results
	if includePages {
		w.writePages(&sb, report)
	}

	// Footer
	w.writeFooter(&sb)

	// Write to output
	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        WEBSPIDER CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if len(report.Seeds) == 0 {
		sb.WriteString("Seeds:      (none)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Seeds:      %s\n", report.Seeds[0]))
		for _, seed := range report.Seeds[1:] {
			sb.WriteString(fmt.Sprintf("            %s\n", seed))
		}
	}

	sb.WriteString(fmt.Sprintf("User Agent: %s\n", report.UserAgent))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration.Round(time.Millisecond)))

	switch {
	case report.State != model.StateCompleted:
		sb.WriteString(fmt.Sprintf("Status:     %s (partial results)\n", report.State))
	case report.BudgetReached:
		sb.WriteString("Status:     COMPLETED (page budget reached)\n")
	default:
		sb.WriteString("Status:     COMPLETED\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the aggregate counter section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	stats := report.Stats
	sb.WriteString(fmt.Sprintf("  CRAWLED:    %d\n", stats.PagesCrawled))
	sb.WriteString(fmt.Sprintf("  FAILED:     %d\n", stats.PagesFailed))
	sb.WriteString(fmt.Sprintf("  SKIPPED:    %d\n", stats.PagesSkipped))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:      %d pages\n", stats.TotalProcessed()))
	sb.WriteString(fmt.Sprintf("  ADMITTED:   %d URLs\n", report.Admitted))
	sb.WriteString(fmt.Sprintf("  LINKS:      %d found\n", stats.LinksFound))
	sb.WriteString(fmt.Sprintf("  DOWNLOADED: %s\n", formatBytes(stats.BytesDownloaded)))

	if rate := stats.PagesPerSecond(); rate > 0 {
		sb.WriteString(fmt.Sprintf("  RATE:       %.1f pages/sec\n", rate))
	}

	sb.WriteString("\n")
}

// writePages writes the per-page results grouped by outcome.
// Failures come first because they are what a reader scans for.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Results) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Results) == 0 {
		sb.WriteString("  No pages were processed\n\n")
		return
	}

	outcomes := []model.Outcome{
		model.OutcomeFailed,
		model.OutcomeSkipped,
		model.OutcomeSuccess,
	}

	for _, outcome := range outcomes {
		results := report.ResultsByOutcome(outcome)
		if len(results) == 0 && !w.showEmpty {
			continue
		}

		w.writePagesForOutcome(sb, outcome, results)
	}
}

// writePagesForOutcome writes the results that share a single outcome.
func (w *SimpleWriter) writePagesForOutcome(sb *strings.Builder, outcome model.Outcome, results []model.CrawlResult) {
	indicator := w.getOutcomeIndicator(outcome)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, outcome.String()))

	if len(results) == 0 {
		sb.WriteString("  No pages\n\n")
		return
	}

	for _, result := range results {
		sb.WriteString(fmt.Sprintf("  * %s (depth %d)\n", result.URL, result.Depth))

		switch outcome {
		case model.OutcomeSuccess:
			sb.WriteString(fmt.Sprintf("    Status: %d, Links: %d, Size: %s\n",
				result.StatusCode, len(result.Links), formatBytes(result.Bytes)))
			if w.verbose && result.Title != "" {
				sb.WriteString(fmt.Sprintf("    Title: %s\n", result.Title))
			}
			if w.verbose && result.FinalURL != "" && result.FinalURL != result.URL {
				sb.WriteString(fmt.Sprintf("    Final URL: %s\n", result.FinalURL))
			}
		case model.OutcomeSkipped:
			sb.WriteString(fmt.Sprintf("    Reason: %s\n", result.SkipReason))
		case model.OutcomeFailed:
			sb.WriteString(fmt.Sprintf("    Error: %s\n", result.Error))
		}
	}
	sb.WriteString("\n")
}

// getOutcomeIndicator returns a visual indicator for the outcome.
func (w *SimpleWriter) getOutcomeIndicator(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeSuccess:
		return "+"
	case model.OutcomeSkipped:
		return "-"
	case model.OutcomeFailed:
		return "x"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webspider\n")
	sb.WriteString("https://github.com/nao1215/webspider\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
