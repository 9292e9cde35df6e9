package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/webspider/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	return w.write(report, true)
}

// WriteSummary outputs the report without the per-page tables.
func (w *MarkdownWriter) WriteSummary(report *model.CrawlReport) (int, error) {
	return w.write(report, false)
}

func (w *MarkdownWriter) write(report *model.CrawlReport, includePages bool) (int, error) {
	md := markdown.NewMarkdown(w.output)

	// Header
	w.writeHeader(md, report)

	// Summary
	w.writeSummary(md, report)

	// Per-page results
	if includePages {
		w.writePages(md, report)
	}

	// Footer
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Webspider Crawl Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", w.getSeedsCell(report)},
			{"User Agent", report.UserAgent},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getSeedsCell renders the seed list as a single table cell.
func (w *MarkdownWriter) getSeedsCell(report *model.CrawlReport) string {
	if len(report.Seeds) == 0 {
		return "-"
	}
	return "`" + strings.Join(report.Seeds, "`, `") + "`"
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.CrawlReport) string {
	if report.State != model.StateCompleted {
		return "⚠️ " + report.State.String() + " (partial results)"
	}
	if report.BudgetReached {
		return "✅ Completed (page budget reached)"
	}
	return "✅ Completed"
}

// writeSummary writes the aggregate counter section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Crawl Summary")
	md.PlainText("")

	stats := report.Stats

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Pages"},
		Rows: [][]string{
			{"🟢 Crawled", strconv.FormatInt(stats.PagesCrawled, 10)},
			{"🔴 Failed", strconv.FormatInt(stats.PagesFailed, 10)},
			{"🟡 Skipped", strconv.FormatInt(stats.PagesSkipped, 10)},
			{"**Total**", "**" + strconv.FormatInt(stats.TotalProcessed(), 10) + "**"},
		},
	})
	md.PlainText("")

	md.PlainTextf("**%d** links discovered, **%s** downloaded.",
		stats.LinksFound, formatBytes(stats.BytesDownloaded))
	md.PlainText("")

	// Add pie chart if any pages were processed
	if stats.TotalProcessed() > 0 {
		w.writePieChart(md, report)
	}

	// Add alert based on how the run went
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcome Distribution"),
		piechart.WithShowData(true),
	)

	stats := report.Stats
	if stats.PagesCrawled > 0 {
		chart.LabelAndIntValue("Crawled", uint64(stats.PagesCrawled))
	}
	if stats.PagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(stats.PagesFailed))
	}
	if stats.PagesSkipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(stats.PagesSkipped))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.Stats.TotalProcessed() == 0:
		md.Note("No pages were processed.")
	case report.Stats.PagesFailed > 0:
		md.Warningf(
			"%d page(s) failed after exhausting retries.",
			report.Stats.PagesFailed,
		)
	case report.BudgetReached:
		md.Note("The crawl stopped at the page budget. Queued URLs beyond the budget were not fetched.")
	default:
		md.Tip("Every admitted page was processed without failures.")
	}
	md.PlainText("")
}

// writePages writes the per-page tables grouped by outcome.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No pages were processed.")
		md.PlainText("")
		return
	}

	w.writeFailedTable(md, report.ResultsByOutcome(model.OutcomeFailed))
	w.writeSkippedTable(md, report.ResultsByOutcome(model.OutcomeSkipped))
	w.writeCrawledTable(md, report.ResultsByOutcome(model.OutcomeSuccess))
}

// writeFailedTable writes the table of failed fetches.
func (w *MarkdownWriter) writeFailedTable(md *markdown.Markdown, results []model.CrawlResult) {
	if len(results) == 0 {
		return
	}

	md.PlainText("### 🔴 Failed")
	md.PlainText("")

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			truncateString(r.URL, 60),
			strconv.Itoa(r.Depth),
			truncateString(r.Error, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSkippedTable writes the table of skipped URLs.
func (w *MarkdownWriter) writeSkippedTable(md *markdown.Markdown, results []model.CrawlResult) {
	if len(results) == 0 {
		return
	}

	md.PlainText("### 🟡 Skipped")
	md.PlainText("")

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			truncateString(r.URL, 60),
			strconv.Itoa(r.Depth),
			r.SkipReason.String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCrawledTable writes the table of successfully crawled pages.
func (w *MarkdownWriter) writeCrawledTable(md *markdown.Markdown, results []model.CrawlResult) {
	if len(results) == 0 {
		return
	}

	md.PlainText("### 🟢 Crawled")
	md.PlainText("")

	rows := make([][]string, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "-"
		}

		rows[i] = []string{
			truncateString(r.URL, 60),
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.StatusCode),
			truncateString(title, 40),
			strconv.Itoa(len(r.Links)),
			formatBytes(r.Bytes),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Title", "Links", "Size"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webspider](https://github.com/nao1215/webspider)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
