package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webspider/internal/model"
)

// Coordinator owns a crawl run end to end: it seeds the frontier, starts
// the worker pool, aggregates results into stats, and shuts everything
// down when the termination condition fires. A run ends when the frontier
// drains (backlog empty and nothing in flight), when the page budget is
// exhausted, or when the context is cancelled; whichever comes first.
//
// A Coordinator is one-shot. Run may be called once; build a new
// Coordinator for the next crawl.
type Coordinator struct {
	fetcher   Fetcher
	extractor LinkExtractor
	sink      Sink
	logger    *slog.Logger

	// maxPages caps frontier admissions for the run, seeds included.
	maxPages int

	// maxDepth caps how many links away from a seed the crawl follows.
	maxDepth int

	// numWorkers is the size of the worker pool.
	numWorkers int

	// defaultDelay is the politeness floor between requests to one domain.
	defaultDelay time.Duration

	// requestTimeout bounds a single fetch attempt.
	requestTimeout time.Duration

	// maxRetries is how many extra attempts a retryable fetch error gets.
	maxRetries int

	// userAgent identifies the crawler to servers and robots.txt.
	userAgent string

	// siteDelays overrides defaultDelay per domain.
	siteDelays map[string]time.Duration

	// state holds the model.CrawlState lifecycle value.
	state atomic.Int32

	frontier *Frontier
	limiter  *RateLimiter
	robots   *RobotsCache
	stats    *model.CrawlStats
	results  chan model.CrawlResult
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMaxPages caps the number of URLs admitted to the frontier.
func WithMaxPages(maxPages int) Option {
	return func(c *Coordinator) {
		c.maxPages = maxPages
	}
}

// WithMaxDepth caps the crawl depth. 0 means only the seed pages.
func WithMaxDepth(maxDepth int) Option {
	return func(c *Coordinator) {
		c.maxDepth = maxDepth
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(numWorkers int) Option {
	return func(c *Coordinator) {
		c.numWorkers = numWorkers
	}
}

// WithDefaultDelay sets the politeness floor between requests to a domain.
func WithDefaultDelay(delay time.Duration) Option {
	return func(c *Coordinator) {
		c.defaultDelay = delay
	}
}

// WithRequestTimeout bounds a single fetch attempt.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.requestTimeout = timeout
	}
}

// WithMaxRetries sets how many extra attempts a retryable fetch error
// gets before the URL is terminally failed.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Coordinator) {
		c.maxRetries = maxRetries
	}
}

// WithUserAgent sets the User-Agent presented to servers and matched
// against robots.txt groups.
func WithUserAgent(userAgent string) Option {
	return func(c *Coordinator) {
		c.userAgent = userAgent
	}
}

// WithSiteDelays overrides the default delay for specific domains.
func WithSiteDelays(delays map[string]time.Duration) Option {
	return func(c *Coordinator) {
		c.siteDelays = delays
	}
}

// WithSink forwards every crawl result to sink as it completes.
func WithSink(sink Sink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

// WithLogger sets the logger for the run.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a coordinator crawling through the given fetcher
// and extractor.
//
// Design decision: We require the collaborators as plain arguments and
// tune everything else with options because:
// 1. a coordinator without transport or parsing cannot work at all
// 2. the knobs all have serviceable defaults
// 3. tests swap in scripted fetchers without touching configuration
func NewCoordinator(fetcher Fetcher, extractor LinkExtractor, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:        fetcher,
		extractor:      extractor,
		logger:         slog.Default(),
		maxPages:       1000,
		maxDepth:       5,
		numWorkers:     8,
		defaultDelay:   time.Second,
		requestTimeout: 30 * time.Second,
		maxRetries:     3,
		userAgent:      "webspider/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns where the run is in its lifecycle.
func (c *Coordinator) State() model.CrawlState {
	return model.CrawlState(c.state.Load())
}

// Stats returns a snapshot of the run counters. Safe to call while the
// crawl is still running; before Run it returns zeroes.
func (c *Coordinator) Stats() model.StatsSnapshot {
	if c.stats == nil {
		return model.StatsSnapshot{}
	}
	return c.stats.Snapshot()
}

// Run crawls from the seed URLs until the frontier drains, the page
// budget is reached, or ctx is cancelled. Per-URL failures never fail the
// run; the returned error is non-nil only for configuration problems or
// when cancellation cut the crawl short, and the report is valid either
// way once the crawl started.
func (c *Coordinator) Run(ctx context.Context, seeds []string) (*model.CrawlReport, error) {
	if c.numWorkers < 1 {
		return nil, ErrNoWorkers
	}
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	canonicalSeeds := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		canonical, err := Canonicalize(seed)
		if err != nil {
			return nil, fmt.Errorf("invalid seed URL %q: %w", seed, err)
		}
		canonicalSeeds = append(canonicalSeeds, canonical)
	}

	if !c.state.CompareAndSwap(int32(model.StateIdle), int32(model.StateRunning)) {
		return nil, ErrAlreadyRan
	}

	c.frontier = NewFrontier(c.maxDepth, c.maxPages)
	c.robots = NewRobotsCache(c.fetcher, c.userAgent, c.logger)
	c.limiter = NewRateLimiter(c.defaultDelay, c.siteDelays, c.robots)
	c.stats = model.NewCrawlStats()
	c.results = make(chan model.CrawlResult, c.numWorkers)

	report := model.NewCrawlReport(canonicalSeeds, c.userAgent)
	c.logger.Info("crawl starting",
		"seeds", len(canonicalSeeds),
		"workers", c.numWorkers,
		"max_pages", c.maxPages,
		"max_depth", c.maxDepth)

	// The aggregation loop is the single owner of stats and the report's
	// result list; workers only ever touch the channel.
	collected := make(chan []model.CrawlResult, 1)
	go c.aggregate(ctx, collected)

	// Duplicate seeds surface as skipped results rather than silently
	// disappearing.
	for _, seed := range canonicalSeeds {
		if !c.frontier.TryAdmit(model.NewURLEntry(seed, 0, "")) {
			c.results <- model.NewSkippedResult(seed, 0, model.SkipAlreadySeen)
		}
	}

	// An external stop closes the frontier: workers finish the entries
	// they already hold and then exit. In-flight fetches are never cut
	// off mid-request beyond their own timeout.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.enterDraining()
			c.frontier.Close()
		case <-watchDone:
		}
	}()

	group, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < c.numWorkers; i++ {
		group.Go(func() error {
			c.runWorker(workerCtx, i)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		// Workers only exit cleanly; keep the log in case that changes.
		c.logger.Warn("worker pool returned error", "error", err)
	}
	close(watchDone)
	close(c.results)
	results := <-collected

	c.state.Store(int32(model.StateCompleted))

	report.Admitted = c.frontier.Admitted()
	report.BudgetReached = report.Admitted >= c.maxPages
	report.Results = results
	report.Finish(model.StateCompleted, c.stats.Snapshot())

	c.logger.Info("crawl finished",
		"pages_crawled", report.Stats.PagesCrawled,
		"pages_failed", report.Stats.PagesFailed,
		"pages_skipped", report.Stats.PagesSkipped,
		"links_found", report.Stats.LinksFound,
		"bytes", report.Stats.BytesDownloaded,
		"duration", report.Duration)

	return report, ctx.Err()
}

// aggregate consumes the result stream until the channel closes, updating
// stats and forwarding each result to the sink. Sink failures are logged
// and never interrupt the crawl.
func (c *Coordinator) aggregate(ctx context.Context, collected chan<- []model.CrawlResult) {
	// Sink writes should survive cancellation: results completed during
	// draining still belong in the sink.
	sinkCtx := context.WithoutCancel(ctx)

	var results []model.CrawlResult
	for result := range c.results {
		c.stats.Record(result)
		results = append(results, result)
		if c.sink != nil {
			if err := c.sink.Record(sinkCtx, result); err != nil {
				c.logger.Warn("sink rejected result", "url", result.URL, "error", err)
			}
		}
	}
	collected <- results
}

// enterDraining flips Running to Draining exactly once; later calls are
// no-ops.
func (c *Coordinator) enterDraining() {
	if c.state.CompareAndSwap(int32(model.StateRunning), int32(model.StateDraining)) {
		c.logger.Debug("crawl draining")
	}
}
