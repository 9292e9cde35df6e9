package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webspider/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl runs and their per-page
// results. It manages connection pooling and provides methods for CRUD
// operations.
//
// Design decision: We use a single database file holding every run rather
// than one file per run. This makes the history command a plain query and
// keeps backup/restore a single-file affair.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "webspider.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Crawl runs store one row per invocation of the crawler
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seeds TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		state TEXT NOT NULL DEFAULT 'RUNNING',
		budget_reached INTEGER NOT NULL DEFAULT 0,
		admitted INTEGER NOT NULL DEFAULT 0,
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		pages_skipped INTEGER NOT NULL DEFAULT 0,
		links_found INTEGER NOT NULL DEFAULT 0,
		bytes_downloaded INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- Pages store the per-URL results of each run as they are produced.
	-- Pages are written by the sink while the crawl is still running, so
	-- a crashed run still leaves its pages behind even though the run row
	-- never gets a report.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id),
		url TEXT NOT NULL,
		final_url TEXT,
		depth INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		skip_reason TEXT,
		status_code INTEGER,
		title TEXT,
		links INTEGER NOT NULL DEFAULT 0,
		bytes INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_outcome ON pages(outcome);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// sqliteTimeFormat is the datetime format SQLite's CURRENT_TIMESTAMP uses.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// BeginRun inserts a new run row in the RUNNING state and returns its ID.
// The ID ties every page written by the run's sink back to the run.
func (cdb *CrawlDB) BeginRun(ctx context.Context, seeds []string, userAgent string) (int64, error) {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	query := `
	INSERT INTO crawl_runs (seeds, user_agent, state)
	VALUES (?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		string(seedsJSON),
		userAgent,
		model.StateRunning.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// InsertPage stores one crawl result under the given run.
//
// There is no uniqueness constraint on (run_id, url): a run can
// legitimately produce two results for one URL, e.g. a duplicate-seed
// skip alongside the actual fetch.
func (cdb *CrawlDB) InsertPage(ctx context.Context, runID int64, result model.CrawlResult) error {
	fetchedAt := result.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := `
	INSERT INTO pages (run_id, url, final_url, depth, outcome, skip_reason, status_code, title, links, bytes, error, fetched_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		result.URL,
		result.FinalURL,
		result.Depth,
		result.Outcome.String(),
		result.SkipReason.String(),
		result.StatusCode,
		result.Title,
		len(result.Links),
		result.Bytes,
		result.Error,
		fetchedAt.UTC().Format(sqliteTimeFormat),
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}

	return nil
}

// RunSink adapts a CrawlDB to the crawl engine's result sink: every
// result the workers produce becomes a page row under one run.
type RunSink struct {
	cdb   *CrawlDB
	runID int64
}

// Sink returns a result sink bound to the given run ID.
func (cdb *CrawlDB) Sink(runID int64) *RunSink {
	return &RunSink{cdb: cdb, runID: runID}
}

// Record stores one crawl result as it is produced.
func (s *RunSink) Record(ctx context.Context, result model.CrawlResult) error {
	return s.cdb.InsertPage(ctx, s.runID, result)
}

// FinishRun stamps a run row with its final state, counters, and the
// complete report serialized as JSON.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, report *model.CrawlReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	UPDATE crawl_runs SET
		finished_at = ?,
		state = ?,
		budget_reached = ?,
		admitted = ?,
		pages_crawled = ?,
		pages_failed = ?,
		pages_skipped = ?,
		links_found = ?,
		bytes_downloaded = ?,
		duration_ms = ?,
		report_json = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		report.FinishedAt.UTC().Format(sqliteTimeFormat),
		report.State.String(),
		report.BudgetReached,
		report.Admitted,
		report.Stats.PagesCrawled,
		report.Stats.PagesFailed,
		report.Stats.PagesSkipped,
		report.Stats.LinksFound,
		report.Stats.BytesDownloaded,
		report.Duration.Milliseconds(),
		string(reportJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finished run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", runID)
	}

	return nil
}

// RunSummary contains one run's headline numbers without its pages.
// This is what the history listing shows.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Seeds are the URLs the run started from.
	Seeds []string

	// UserAgent is the identity the run presented to servers.
	UserAgent string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run ended; zero for unfinished runs.
	FinishedAt time.Time

	// State is the final lifecycle state as recorded, e.g. "COMPLETED".
	// Runs that crashed mid-crawl stay "RUNNING" forever.
	State string

	// BudgetReached is true when the run ended on the page budget.
	BudgetReached bool

	// Admitted is the number of URLs accepted into the frontier.
	Admitted int

	// PagesCrawled, PagesFailed, and PagesSkipped are the outcome tallies.
	PagesCrawled int64
	PagesFailed  int64
	PagesSkipped int64

	// LinksFound is the total number of links discovered.
	LinksFound int64

	// BytesDownloaded is the total decoded body size.
	BytesDownloaded int64

	// Duration is the run's wall-clock time.
	Duration time.Duration
}

// ListRuns returns every run in the database, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	query := `
	SELECT id, seeds, user_agent, started_at, finished_at, state, budget_reached,
		admitted, pages_crawled, pages_failed, pages_skipped, links_found,
		bytes_downloaded, duration_ms
	FROM crawl_runs
	ORDER BY started_at DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var seedsJSON string
		var startedAt string
		var finishedAt sql.NullString
		var durationMS int64

		err := rows.Scan(
			&run.ID,
			&seedsJSON,
			&run.UserAgent,
			&startedAt,
			&finishedAt,
			&run.State,
			&run.BudgetReached,
			&run.Admitted,
			&run.PagesCrawled,
			&run.PagesFailed,
			&run.PagesSkipped,
			&run.LinksFound,
			&run.BytesDownloaded,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal([]byte(seedsJSON), &run.Seeds); err != nil {
			return nil, fmt.Errorf("failed to parse seeds for run %d: %w", run.ID, err)
		}
		run.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			run.FinishedAt = parseTimestamp(finishedAt.String)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRunReport retrieves the full stored report for a run.
// Returns nil without error when the run does not exist or never
// finished (the report is only written by FinishRun).
func (cdb *CrawlDB) GetRunReport(ctx context.Context, runID int64) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM crawl_runs
	WHERE id = ?
	`

	var reportJSON sql.NullString
	err := cdb.db.QueryRowContext(ctx, query, runID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	if !reportJSON.Valid || reportJSON.String == "" {
		return nil, nil
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// PageRecord represents a stored per-URL result.
type PageRecord struct {
	ID         int64
	RunID      int64
	URL        string
	FinalURL   string
	Depth      int
	Outcome    string
	SkipReason string
	StatusCode int
	Title      string
	Links      int
	Bytes      int64
	Error      string
	FetchedAt  time.Time
	Duration   time.Duration
}

// ListPages returns a run's pages in the order they were recorded.
// Useful for inspecting runs whose report was never written.
func (cdb *CrawlDB) ListPages(ctx context.Context, runID int64) ([]PageRecord, error) {
	query := `
	SELECT id, run_id, url, final_url, depth, outcome, skip_reason, status_code,
		title, links, bytes, error, fetched_at, duration_ms
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var page PageRecord
		var fetchedAt string
		var durationMS int64

		err := rows.Scan(
			&page.ID,
			&page.RunID,
			&page.URL,
			&page.FinalURL,
			&page.Depth,
			&page.Outcome,
			&page.SkipReason,
			&page.StatusCode,
			&page.Title,
			&page.Links,
			&page.Bytes,
			&page.Error,
			&fetchedAt,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		page.FetchedAt = parseTimestamp(fetchedAt)
		page.Duration = time.Duration(durationMS) * time.Millisecond

		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
