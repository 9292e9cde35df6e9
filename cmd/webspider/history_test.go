package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webspider/internal/database"
	"github.com/nao1215/webspider/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("expected use 'history', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has flags with shorthands", func(t *testing.T) {
		t.Parallel()
		flagsWithShort := map[string]string{
			"run-id": "i",
			"pages":  "p",
			"json":   "j",
		}
		for flag, shorthand := range flagsWithShort {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				t.Errorf("expected flag %q to exist", flag)
				continue
			}
			if f.Shorthand != shorthand {
				t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
			}
		}
	})

	t.Run("has db flag without shorthand", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("db")
		if flag == nil {
			t.Fatal("expected db flag")
		}
		if flag.Shorthand != "" {
			t.Errorf("expected no shorthand, got %q", flag.Shorthand)
		}
	})
}

// TestFormatRunPages tests the outcome tally formatting.
func TestFormatRunPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		run  database.RunSummary
		want string
	}{
		{
			name: "no pages",
			run:  database.RunSummary{},
			want: "No pages",
		},
		{
			name: "only crawled",
			run:  database.RunSummary{PagesCrawled: 5},
			want: "C:5",
		},
		{
			name: "all outcomes",
			run:  database.RunSummary{PagesCrawled: 5, PagesFailed: 2, PagesSkipped: 1},
			want: "C:5 F:2 S:1",
		},
		{
			name: "failed and skipped only",
			run:  database.RunSummary{PagesFailed: 3, PagesSkipped: 7},
			want: "F:3 S:7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatRunPages(tt.run)
			if got != tt.want {
				t.Errorf("formatRunPages() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatRunSeeds tests the seed list formatting.
func TestFormatRunSeeds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		seeds []string
		want  string
	}{
		{
			name:  "no seeds",
			seeds: nil,
			want:  "-",
		},
		{
			name:  "single seed",
			seeds: []string{"http://example.com/"},
			want:  "http://example.com/",
		},
		{
			name:  "multiple seeds",
			seeds: []string{"http://a.example/", "http://b.example/", "http://c.example/"},
			want:  "http://a.example/ (+2 more)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatRunSeeds(tt.seeds)
			if got != tt.want {
				t.Errorf("formatRunSeeds() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatPageStatus tests the HTTP status formatting.
func TestFormatPageStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page database.PageRecord
		want string
	}{
		{
			name: "no response",
			page: database.PageRecord{},
			want: "-",
		},
		{
			name: "ok",
			page: database.PageRecord{StatusCode: 200},
			want: "200",
		},
		{
			name: "server error",
			page: database.PageRecord{StatusCode: 503},
			want: "503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatPageStatus(tt.page)
			if got != tt.want {
				t.Errorf("formatPageStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

// seedRun stores one finished run with the given results and returns its ID.
func seedRun(t *testing.T, db *database.CrawlDB, seeds []string, results []model.CrawlResult) int64 {
	t.Helper()

	ctx := context.Background()
	runID, err := db.BeginRun(ctx, seeds, "webspider/1.0")
	if err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}

	sink := db.Sink(runID)
	var stats model.StatsSnapshot
	for _, result := range results {
		if err := sink.Record(ctx, result); err != nil {
			t.Fatalf("failed to record page: %v", err)
		}
		switch result.Outcome {
		case model.OutcomeSuccess:
			stats.PagesCrawled++
			stats.LinksFound += int64(len(result.Links))
			stats.BytesDownloaded += result.Bytes
		case model.OutcomeFailed:
			stats.PagesFailed++
		case model.OutcomeSkipped:
			stats.PagesSkipped++
		}
	}
	stats.Elapsed = time.Second

	crawlReport := model.NewCrawlReport(seeds, "webspider/1.0")
	crawlReport.Admitted = len(results)
	crawlReport.Results = append(crawlReport.Results, results...)
	crawlReport.Finish(model.StateCompleted, stats)

	if err := db.FinishRun(ctx, runID, crawlReport); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	return runID
}

func TestListRunsIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Test with empty database
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err = listRuns(ctx, db)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("listRuns() error = %v", err)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	if !strings.Contains(output, "No crawl runs found") {
		t.Error("expected 'No crawl runs found' message")
	}

	// Add two runs
	seedRun(t, db, []string{"http://example.com/"}, []model.CrawlResult{
		model.NewSuccessResult("http://example.com/", 0, 200, "Example", nil, 512),
	})
	seedRun(t, db, []string{"http://example.org/", "http://example.net/"}, []model.CrawlResult{
		model.NewSuccessResult("http://example.org/", 0, 200, "Org", nil, 256),
		model.NewFailedResult("http://example.net/", 0, errors.New("connection refused")),
	})

	// Test with data
	r, w, _ = os.Pipe()
	os.Stdout = w

	err = listRuns(ctx, db)

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("listRuns() error = %v", err)
	}

	buf.Reset()
	_, _ = buf.ReadFrom(r)
	output = buf.String()

	if !strings.Contains(output, "Crawl runs (2)") {
		t.Errorf("expected 'Crawl runs (2)' in output, got: %s", output)
	}
	if !strings.Contains(output, "http://example.com/") {
		t.Error("expected first run's seed in output")
	}
	if !strings.Contains(output, "http://example.org/ (+1 more)") {
		t.Error("expected second run's seed summary in output")
	}
	if !strings.Contains(output, "C:1 F:1") {
		t.Errorf("expected outcome tallies in output, got: %s", output)
	}
	if !strings.Contains(output, "COMPLETED") {
		t.Error("expected run state in output")
	}
}

func TestShowRunReportIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	runID := seedRun(t, db, []string{"http://example.com/"}, []model.CrawlResult{
		model.NewSuccessResult("http://example.com/", 0, 200, "Example", nil, 512),
	})

	t.Run("shows stored text report", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		showErr := showRunReport(ctx, db, runID, false, false)

		w.Close()
		os.Stdout = oldStdout

		if showErr != nil {
			t.Fatalf("showRunReport() error = %v", showErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, "WEBSPIDER CRAWL REPORT") {
			t.Error("expected report header in output")
		}
		if !strings.Contains(output, "http://example.com/") {
			t.Error("expected seed URL in output")
		}
	})

	t.Run("shows stored JSON report", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		showErr := showRunReport(ctx, db, runID, true, false)

		w.Close()
		os.Stdout = oldStdout

		if showErr != nil {
			t.Fatalf("showRunReport() error = %v", showErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, `"pages_crawled"`) {
			t.Error("expected stats fields in JSON output")
		}
	})

	t.Run("returns error for unknown run", func(t *testing.T) {
		showErr := showRunReport(ctx, db, runID+100, false, false)
		if showErr == nil {
			t.Fatal("expected error for unknown run")
		}
		if !strings.Contains(showErr.Error(), "no stored report") {
			t.Errorf("expected 'no stored report' error, got %v", showErr)
		}
	})
}

func TestListRunPagesIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	tmpDir := t.TempDir()
	db, err := database.Open(tmpDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	runID := seedRun(t, db, []string{"http://example.com/"}, []model.CrawlResult{
		model.NewSuccessResult("http://example.com/", 0, 200, "Example", nil, 512),
		model.NewSkippedResult("http://example.com/private", 1, model.SkipRobotsDisallowed),
		model.NewFailedResult("http://example.com/broken", 1, errors.New("connection refused")),
	})

	t.Run("lists recorded pages", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		listErr := listRunPages(ctx, db, runID)

		w.Close()
		os.Stdout = oldStdout

		if listErr != nil {
			t.Fatalf("listRunPages() error = %v", listErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, "Pages for run") {
			t.Error("expected page listing header")
		}
		if !strings.Contains(output, "http://example.com/broken") {
			t.Error("expected failed page URL in output")
		}
		if !strings.Contains(output, "error: connection refused") {
			t.Error("expected error detail in output")
		}
		if !strings.Contains(output, "reason: robots_disallowed") {
			t.Error("expected skip reason detail in output")
		}
		if !strings.Contains(output, "SUCCESS") {
			t.Error("expected outcome column in output")
		}
	})

	t.Run("reports empty run", func(t *testing.T) {
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		listErr := listRunPages(ctx, db, runID+100)

		w.Close()
		os.Stdout = oldStdout

		if listErr != nil {
			t.Fatalf("listRunPages() error = %v", listErr)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, "No pages recorded") {
			t.Error("expected 'No pages recorded' message")
		}
	})
}

// TestRunHistoryCmdPagesRequiresRunID tests the flag combination check.
func TestRunHistoryCmdPagesRequiresRunID(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetArgs([]string{"--pages"})

	err := cmd.Execute()
	if err == nil {
		t.Error("expected error for --pages without --run-id")
	}
	if !strings.Contains(err.Error(), "--pages requires --run-id") {
		t.Errorf("expected flag combination error, got: %v", err)
	}
}
