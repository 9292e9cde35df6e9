package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/webspider/internal/config"
	"github.com/nao1215/webspider/internal/crawler"
	"github.com/nao1215/webspider/internal/database"
	"github.com/nao1215/webspider/internal/extractor"
	"github.com/nao1215/webspider/internal/fetcher"
	"github.com/nao1215/webspider/internal/log"
	"github.com/nao1215/webspider/internal/model"
	"github.com/nao1215/webspider/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]...",
		Short: "Crawl one or more sites starting from seed URLs",
		Long: `Crawl fetches pages breadth first from the given seed URLs.

The crawler honors robots.txt rules and keeps a minimum interval between
requests to the same domain. Discovered links are followed up to the
depth limit until the page budget is exhausted. Every page outcome is
recorded in a local SQLite database for later inspection with
'webspider history' and 'webspider compare'.

Examples:
  # Crawl a single site with defaults
  webspider crawl https://example.com

  # Crawl two sites, at most 50 pages and 2 links from the seeds
  webspider crawl --max-pages 50 --max-depth 2 https://example.com https://example.org

  # Slow down to one request every 5 seconds per domain
  webspider crawl --delay 5s https://example.com

  # Write a JSON report to a file
  webspider crawl --json -o report.json https://example.com

  # Use a custom configuration file
  webspider crawl -c myconfig.yaml https://example.com

Configuration file (.webspider) example:
  defaults:
    delay: 2s
  sites:
    example.com:
      delay: 10s`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl, seeds included")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seeds (0 crawls only the seeds)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between requests to the same domain")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for a single fetch attempt")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Extra attempts for transient fetch failures")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent to present (also used for robots.txt rule matching)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webspider in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Database location
	cmd.Flags().String("db", "",
		"Directory for the crawl database (default: XDG data directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, draining workers...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("max-depth")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	// The config file's default delay applies only when --delay was not
	// given on the command line.
	if !cmd.Flags().Changed("delay") {
		if delay, ok := cfg.SiteConfigs.DefaultDelay(); ok {
			cfg.CrawlDelay = delay
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Always save to database; --db overrides the XDG default location
	cfg.DBDir, err = cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	cfg.SaveToDB = true

	// Get positional arguments (seed URLs)
	cfg.Seeds = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// The secure handler masks credentials and URL query tokens that would
// otherwise leak into the log stream.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Canonicalize seeds up front so database rows, report output, and
	// later history lookups all agree on the URL form.
	seeds := make([]string, 0, len(cfg.Seeds))
	for _, seed := range cfg.Seeds {
		canonical, err := crawler.Canonicalize(seed)
		if err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", seed, err)
		}
		seeds = append(seeds, canonical)
	}
	cfg.Seeds = seeds

	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"maxPages", cfg.MaxPages,
		"maxDepth", cfg.MaxDepth,
		"workers", cfg.Workers,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	httpFetcher := fetcher.NewHTTPFetcher(
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	)
	htmlExtractor := extractor.NewHTMLExtractor()

	opts := []crawler.Option{
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithDefaultDelay(cfg.CrawlDelay),
		crawler.WithRequestTimeout(cfg.RequestTimeout),
		crawler.WithMaxRetries(cfg.MaxRetries),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithLogger(logger),
	}

	if cfg.SiteConfigs != nil {
		if delays := cfg.SiteConfigs.SiteDelays(); delays != nil {
			opts = append(opts, crawler.WithSiteDelays(delays))
		}
	}

	// Begin a database run before crawling so page rows land while the
	// crawl is still going; an interrupted run keeps everything recorded
	// up to that point.
	var runID int64
	if db != nil {
		var err error
		runID, err = db.BeginRun(ctx, cfg.Seeds, cfg.UserAgent)
		if err != nil {
			return fmt.Errorf("failed to begin database run: %w", err)
		}
		opts = append(opts, crawler.WithSink(db.Sink(runID)))
	}

	coordinator := crawler.NewCoordinator(httpFetcher, htmlExtractor, opts...)

	fmt.Printf("Crawling %s...\n", strings.Join(cfg.Seeds, ", "))
	startTime := time.Now()

	crawlReport, runErr := coordinator.Run(ctx, cfg.Seeds)
	if crawlReport == nil {
		return runErr
	}

	elapsed := time.Since(startTime)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Crawl interrupted after %s: %v\n",
			elapsed.Round(time.Millisecond), runErr)
	} else {
		fmt.Printf("Crawl completed in %s\n\n", elapsed.Round(time.Millisecond))
	}

	// Generate and output report
	if err := outputReport(cfg, crawlReport); err != nil {
		logger.Error("report failed", "error", err)
	}

	// Finalize the database run
	if err := saveCrawlReport(ctx, db, runID, crawlReport, logger); err != nil {
		logger.Error("failed to save crawl report", "error", err)
	}

	return runErr
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// 0600 because crawled URLs can carry session tokens in query
		// strings
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(crawlReport)
	return err
}

// saveCrawlReport finalizes the database run. If db is nil, this
// function is a no-op. The write runs on a detached context so an
// interrupted crawl still lands its final report.
func saveCrawlReport(ctx context.Context, db *database.CrawlDB, runID int64, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	saveCtx := context.WithoutCancel(ctx)
	if err := db.FinishRun(saveCtx, runID, crawlReport); err != nil {
		return fmt.Errorf("failed to finish database run: %w", err)
	}

	logger.Info("crawl report saved to database", "runID", runID)
	return nil
}
