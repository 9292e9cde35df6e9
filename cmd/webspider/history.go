package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/webspider/internal/config"
	"github.com/nao1215/webspider/internal/database"
	"github.com/nao1215/webspider/internal/report"
	"github.com/spf13/cobra"
)

// noPagesMessage is shown in the run listing for runs without page rows.
const noPagesMessage = "No pages"

// NewHistoryCmd creates the history command.
// This command lists stored crawl runs and replays their saved reports.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored crawl runs and show saved reports",
		Long: `History browses crawl runs stored in the local database.

Every 'webspider crawl' run records its page results and final report
in a SQLite database. This command inspects that history:
- Without flags it lists all stored runs, newest first
- With --run-id it prints the saved report of one run
- With --run-id and --pages it lists the raw page rows instead, which
  also works for interrupted runs that never stored a final report

Examples:
  # List all stored runs
  webspider history

  # Show the saved report for run 3
  webspider history --run-id 3

  # Show the saved report as pretty-printed JSON
  webspider history --run-id 3 --json

  # List the page rows of an interrupted run
  webspider history --run-id 4 --pages`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	// Run selection flags
	cmd.Flags().Int64P("run-id", "i", 0,
		"Show the stored report for a specific run (use the listing to see IDs)")
	cmd.Flags().BoolP("pages", "p", false,
		"List the recorded page rows of the run given with --run-id")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the stored report in JSON format")

	// Database location flag
	cmd.Flags().String("db", "",
		"Directory holding the crawl database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	pages, err := cmd.Flags().GetBool("pages")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
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

	// Validate flag combinations before opening the database
	if pages && runID == 0 {
		return errors.New("--pages requires --run-id (use the listing to find run IDs)")
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if runID > 0 {
		if pages {
			return listRunPages(ctx, db, runID)
		}
		return showRunReport(ctx, db, runID, jsonOutput, getVerboseFlag(cmd))
	}

	return listRuns(ctx, db)
}

// listRuns prints every stored run, newest first.
func listRuns(ctx context.Context, db *database.CrawlDB) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No crawl runs found in the database.")
		fmt.Println("\nUse 'webspider crawl <url>' to crawl a site and record a run.")
		return nil
	}

	fmt.Printf("Crawl runs (%d):\n\n", len(runs))
	fmt.Printf("  %-6s  %-20s  %-10s  %-18s  %s\n", "ID", "Started", "State", "Pages", "Seeds")
	fmt.Println("  " + strings.Repeat("-", 76))

	for _, run := range runs {
		fmt.Printf("  %-6d  %-20s  %-10s  %-18s  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.State,
			formatRunPages(run),
			formatRunSeeds(run.Seeds),
		)
	}

	fmt.Println("\nUse 'webspider history --run-id <id>' to see a run's stored report.")
	fmt.Println("Use 'webspider compare <url>' to compare the latest two runs of a site.")

	return nil
}

// formatRunPages formats a run's outcome tallies into a short string.
func formatRunPages(run database.RunSummary) string {
	var parts []string
	if run.PagesCrawled > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", run.PagesCrawled))
	}
	if run.PagesFailed > 0 {
		parts = append(parts, fmt.Sprintf("F:%d", run.PagesFailed))
	}
	if run.PagesSkipped > 0 {
		parts = append(parts, fmt.Sprintf("S:%d", run.PagesSkipped))
	}

	if len(parts) == 0 {
		return noPagesMessage
	}
	return strings.Join(parts, " ")
}

// formatRunSeeds formats a run's seed list for the single-line listing.
func formatRunSeeds(seeds []string) string {
	if len(seeds) == 0 {
		return "-"
	}
	if len(seeds) == 1 {
		return seeds[0]
	}
	return fmt.Sprintf("%s (+%d more)", seeds[0], len(seeds)-1)
}

// showRunReport prints the stored report of a single run.
func showRunReport(ctx context.Context, db *database.CrawlDB, runID int64, jsonOutput, verbose bool) error {
	crawlReport, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get report for run %d: %w", runID, err)
	}
	if crawlReport == nil {
		return fmt.Errorf("run %d has no stored report; the run may still be in progress or was interrupted (use --pages to list its recorded pages)", runID)
	}

	var writer report.Writer
	if jsonOutput {
		writer = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(os.Stdout, report.WithVerbose(verbose))
	}

	if _, err := writer.Write(crawlReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// listRunPages prints a run's recorded page rows in insertion order.
// Interrupted runs keep their rows even though no final report exists.
func listRunPages(ctx context.Context, db *database.CrawlDB, runID int64) error {
	pages, err := db.ListPages(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list pages for run %d: %w", runID, err)
	}

	if len(pages) == 0 {
		fmt.Printf("No pages recorded for run %d\n", runID)
		return nil
	}

	fmt.Printf("Pages for run %d (%d):\n\n", runID, len(pages))
	fmt.Printf("  %-8s  %-5s  %-6s  %s\n", "Outcome", "Depth", "Status", "URL")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, page := range pages {
		fmt.Printf("  %-8s  %-5d  %-6s  %s\n",
			page.Outcome,
			page.Depth,
			formatPageStatus(page),
			page.URL,
		)
		if page.Error != "" {
			fmt.Printf("%25s  error: %s\n", "", page.Error)
		}
		if page.SkipReason != "" {
			fmt.Printf("%25s  reason: %s\n", "", page.SkipReason)
		}
	}

	return nil
}

// formatPageStatus formats a page's HTTP status code, or "-" when the
// request never produced a response.
func formatPageStatus(page database.PageRecord) string {
	if page.StatusCode == 0 {
		return "-"
	}
	return strconv.Itoa(page.StatusCode)
}
