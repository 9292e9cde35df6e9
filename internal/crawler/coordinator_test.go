package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/webspider/internal/model"
)

// mapExtractor returns scripted links keyed by the page's base URL and a
// fixed title for every page.
type mapExtractor struct {
	links map[string][]string
	title string
	err   error
}

func (e *mapExtractor) ExtractLinks(body []byte, baseURL string) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.links[baseURL], nil
}

func (e *mapExtractor) ExtractTitle(body []byte) string {
	return e.title
}

// recordingSink collects every result it receives.
type recordingSink struct {
	mu      sync.Mutex
	results []model.CrawlResult
	err     error
}

func (s *recordingSink) Record(ctx context.Context, result model.CrawlResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// testLogger keeps crawl logs out of test output unless something is
// genuinely wrong.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// resultByURL finds the result for a URL in a report.
func resultByURL(t *testing.T, report *model.CrawlReport, url string) model.CrawlResult {
	t.Helper()
	for _, result := range report.Results {
		if result.URL == url {
			return result
		}
	}
	t.Fatalf("no result for %q in report", url)
	return model.CrawlResult{}
}

func TestCoordinatorRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls a single page", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html><title>Home</title></html>"},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{title: "Home"},
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		if got := coord.State(); got != model.StateIdle {
			t.Errorf("expected IDLE before Run, got %v", got)
		}

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := coord.State(); got != model.StateCompleted {
			t.Errorf("expected COMPLETED after Run, got %v", got)
		}
		if report.Admitted != 1 {
			t.Errorf("expected 1 admitted, got %d", report.Admitted)
		}
		if len(report.Results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(report.Results))
		}

		result := report.Results[0]
		if result.Outcome != model.OutcomeSuccess {
			t.Errorf("expected SUCCESS, got %v", result.Outcome)
		}
		if result.Title != "Home" {
			t.Errorf("expected title Home, got %q", result.Title)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", result.StatusCode)
		}
		if report.Stats.PagesCrawled != 1 {
			t.Errorf("expected 1 page crawled, got %d", report.Stats.PagesCrawled)
		}
		if report.BudgetReached {
			t.Error("budget should not be reached for a single page")
		}
	})

	t.Run("canonicalizes seeds in the report", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"HTTP://SITE.TEST:80/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Seeds) != 1 || report.Seeds[0] != "http://site.test/" {
			t.Errorf("expected canonical seed, got %v", report.Seeds)
		}
	})

	t.Run("follows links one depth down with dedup", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/":   {status: http.StatusOK, body: "<html>home</html>"},
			"http://site.test/b":  {status: http.StatusOK, body: "<html>b</html>"},
			"http://other.test/c": {status: http.StatusOK, body: "<html>c</html>"},
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {
				"http://site.test/b",
				"http://site.test/b",
				"http://other.test/c",
			},
		}}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxDepth(1),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The duplicate link collapses: seed plus two distinct children.
		if report.Admitted != 3 {
			t.Errorf("expected 3 admissions, got %d", report.Admitted)
		}
		if len(report.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(report.Results))
		}

		pages := fetcher.pageURLs()
		slices.Sort(pages)
		want := []string{"http://other.test/c", "http://site.test/", "http://site.test/b"}
		if !slices.Equal(pages, want) {
			t.Errorf("expected pages %v, got %v", want, pages)
		}

		seedResult := resultByURL(t, report, "http://site.test/")
		if len(seedResult.Links) != 3 {
			t.Errorf("expected 3 links on the seed page, got %v", seedResult.Links)
		}
		childResult := resultByURL(t, report, "http://site.test/b")
		if childResult.Depth != 1 {
			t.Errorf("expected child at depth 1, got %d", childResult.Depth)
		}
		if report.Stats.LinksFound != 3 {
			t.Errorf("expected 3 links found, got %d", report.Stats.LinksFound)
		}
	})

	t.Run("depth limit keeps children out", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {"http://site.test/b"},
		}}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxDepth(0),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Admitted != 1 {
			t.Errorf("expected only the seed admitted, got %d", report.Admitted)
		}
		if got := fetcher.pageURLs(); len(got) != 1 {
			t.Errorf("expected only the seed fetched, got %v", got)
		}
		// The link is still reported even though it was not followed.
		if got := report.Results[0].Links; len(got) != 1 {
			t.Errorf("expected the link recorded on the result, got %v", got)
		}
	})

	t.Run("page budget caps admissions", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/":  {status: http.StatusOK, body: "<html></html>"},
			"http://site.test/a": {status: http.StatusOK, body: "<html></html>"},
			"http://site.test/b": {status: http.StatusOK, body: "<html></html>"},
			"http://site.test/c": {status: http.StatusOK, body: "<html></html>"},
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {"http://site.test/a", "http://site.test/b", "http://site.test/c"},
		}}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxPages(2),
			WithMaxDepth(3),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Admitted != 2 {
			t.Errorf("expected 2 admissions, got %d", report.Admitted)
		}
		if len(report.Results) != 2 {
			t.Errorf("expected both admitted pages fetched, got %d results", len(report.Results))
		}
		if !report.BudgetReached {
			t.Error("expected the budget to be reported as reached")
		}
	})

	t.Run("robots disallow skips before fetching", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/robots.txt": {
				status: http.StatusOK,
				body:   "User-agent: *\nDisallow: /private\n",
			},
			"http://site.test/":       {status: http.StatusOK, body: "<html></html>"},
			"http://site.test/public": {status: http.StatusOK, body: "<html></html>"},
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {"http://site.test/public", "http://site.test/private/secret"},
		}}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxDepth(1),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		blocked := resultByURL(t, report, "http://site.test/private/secret")
		if blocked.Outcome != model.OutcomeSkipped {
			t.Errorf("expected SKIPPED, got %v", blocked.Outcome)
		}
		if blocked.SkipReason != model.SkipRobotsDisallowed {
			t.Errorf("expected robots_disallowed, got %v", blocked.SkipReason)
		}
		if got := fetcher.fetchCount("http://site.test/private/secret"); got != 0 {
			t.Errorf("disallowed URL must never be fetched, got %d fetches", got)
		}
		if got := fetcher.fetchCount("http://site.test/robots.txt"); got != 1 {
			t.Errorf("expected robots.txt fetched once, got %d", got)
		}
		if report.Stats.PagesSkipped != 1 {
			t.Errorf("expected 1 skip, got %d", report.Stats.PagesSkipped)
		}

		open := resultByURL(t, report, "http://site.test/public")
		if open.Outcome != model.OutcomeSuccess {
			t.Errorf("expected the allowed sibling to succeed, got %v", open.Outcome)
		}
	})

	t.Run("retries server errors until success", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{
			responses: map[string]scriptedResponse{
				"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
			},
			failures: map[string]int{"http://site.test/": 1},
		}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithMaxRetries(2),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := report.Results[0].Outcome; got != model.OutcomeSuccess {
			t.Errorf("expected SUCCESS after a retry, got %v", got)
		}
		if got := fetcher.fetchCount("http://site.test/"); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusInternalServerError},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithMaxRetries(1),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := report.Results[0]
		if result.Outcome != model.OutcomeFailed {
			t.Errorf("expected FAILED, got %v", result.Outcome)
		}
		if result.Error == "" {
			t.Error("expected the failure reason on the result")
		}
		if got := fetcher.fetchCount("http://site.test/"); got != 2 {
			t.Errorf("expected initial attempt plus 1 retry, got %d", got)
		}
		// The URL failed terminally: exactly one result, no requeue.
		if len(report.Results) != 1 {
			t.Errorf("expected 1 result, got %d", len(report.Results))
		}
		if report.Stats.PagesFailed != 1 {
			t.Errorf("expected 1 failed page, got %d", report.Stats.PagesFailed)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/gone": {status: http.StatusNotFound},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithMaxRetries(3),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/gone"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := report.Results[0].Outcome; got != model.OutcomeFailed {
			t.Errorf("expected FAILED, got %v", got)
		}
		if got := fetcher.fetchCount("http://site.test/gone"); got != 1 {
			t.Errorf("404 must not be retried, got %d attempts", got)
		}
	})

	t.Run("skips non-HTML content without following links", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/logo": {
				status:      http.StatusOK,
				body:        "pretend-png-bytes",
				contentType: "image/png",
			},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/logo"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := report.Results[0]
		if result.Outcome != model.OutcomeSkipped {
			t.Errorf("expected SKIPPED, got %v", result.Outcome)
		}
		if result.SkipReason != model.SkipNotHTML {
			t.Errorf("expected not_html, got %v", result.SkipReason)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("expected the status recorded, got %d", result.StatusCode)
		}
		if report.Admitted != 1 {
			t.Errorf("expected no children admitted, got %d admissions", report.Admitted)
		}
	})

	t.Run("skips oversized pages", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/huge": {
				err: &model.OversizeError{URL: "http://site.test/huge", Limit: 1024},
			},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithMaxRetries(3),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/huge"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result := report.Results[0]
		if result.Outcome != model.OutcomeSkipped {
			t.Errorf("expected SKIPPED, got %v", result.Outcome)
		}
		if result.SkipReason != model.SkipOversize {
			t.Errorf("expected oversize, got %v", result.SkipReason)
		}
		if got := fetcher.fetchCount("http://site.test/huge"); got != 1 {
			t.Errorf("oversize must not be retried, got %d attempts", got)
		}
	})

	t.Run("duplicate seeds surface as skipped", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{
			"http://site.test/",
			"http://site.test:80/",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Admitted != 1 {
			t.Errorf("expected 1 admission, got %d", report.Admitted)
		}
		if len(report.Results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(report.Results))
		}

		skipped := report.ResultsByOutcome(model.OutcomeSkipped)
		if len(skipped) != 1 {
			t.Fatalf("expected 1 skipped result, got %d", len(skipped))
		}
		if skipped[0].SkipReason != model.SkipAlreadySeen {
			t.Errorf("expected already_seen, got %v", skipped[0].SkipReason)
		}
	})

	t.Run("sink receives every result", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/":  {status: http.StatusOK, body: "<html></html>"},
			"http://site.test/a": {status: http.StatusOK, body: "<html></html>"},
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {"http://site.test/a"},
		}}
		sink := &recordingSink{}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxDepth(1),
			WithDefaultDelay(0),
			WithSink(sink),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sink.count() != len(report.Results) {
			t.Errorf("sink saw %d results, report has %d", sink.count(), len(report.Results))
		}
	})

	t.Run("sink errors do not fail the run", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
		}}
		sink := &recordingSink{err: errors.New("disk full")}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithDefaultDelay(0),
			WithSink(sink),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Results) != 1 {
			t.Errorf("expected the crawl to finish despite sink errors, got %d results", len(report.Results))
		}
	})

	t.Run("mixed outcomes are tallied separately", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html>hello</html>"},
			"http://site.test/img": {
				status:      http.StatusOK,
				body:        "bytes",
				contentType: "image/png",
			},
			// /missing is unscripted and 404s.
		}}
		extractor := &mapExtractor{links: map[string][]string{
			"http://site.test/": {"http://site.test/img", "http://site.test/missing"},
		}}
		coord := NewCoordinator(fetcher, extractor,
			WithMaxDepth(1),
			WithMaxRetries(0),
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		report, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Stats.PagesCrawled != 1 {
			t.Errorf("expected 1 crawled, got %d", report.Stats.PagesCrawled)
		}
		if report.Stats.PagesSkipped != 1 {
			t.Errorf("expected 1 skipped, got %d", report.Stats.PagesSkipped)
		}
		if report.Stats.PagesFailed != 1 {
			t.Errorf("expected 1 failed, got %d", report.Stats.PagesFailed)
		}
		if got := report.Stats.TotalProcessed(); got != 3 {
			t.Errorf("expected 3 processed, got %d", got)
		}
		if report.Stats.BytesDownloaded == 0 {
			t.Error("expected bytes downloaded to be counted")
		}
		if !report.HasFailures() {
			t.Error("expected the report to flag failures")
		}
	})
}

func TestCoordinatorRunValidation(t *testing.T) {
	t.Parallel()

	t.Run("requires seeds", func(t *testing.T) {
		t.Parallel()

		coord := NewCoordinator(&scriptedFetcher{}, &mapExtractor{}, WithLogger(testLogger()))
		if _, err := coord.Run(context.Background(), nil); !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})

	t.Run("requires at least one worker", func(t *testing.T) {
		t.Parallel()

		coord := NewCoordinator(&scriptedFetcher{}, &mapExtractor{},
			WithWorkers(0),
			WithLogger(testLogger()),
		)
		_, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if !errors.Is(err, ErrNoWorkers) {
			t.Errorf("expected ErrNoWorkers, got %v", err)
		}
	})

	t.Run("rejects invalid seed URLs", func(t *testing.T) {
		t.Parallel()

		coord := NewCoordinator(&scriptedFetcher{}, &mapExtractor{}, WithLogger(testLogger()))
		_, err := coord.Run(context.Background(), []string{"ftp://site.test/file"})
		if !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})

	t.Run("refuses to run twice", func(t *testing.T) {
		t.Parallel()

		fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
			"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
		}}
		coord := NewCoordinator(fetcher, &mapExtractor{},
			WithDefaultDelay(0),
			WithLogger(testLogger()),
		)

		if _, err := coord.Run(context.Background(), []string{"http://site.test/"}); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		_, err := coord.Run(context.Background(), []string{"http://site.test/"})
		if !errors.Is(err, ErrAlreadyRan) {
			t.Errorf("expected ErrAlreadyRan, got %v", err)
		}
	})
}

func TestCoordinatorCancellation(t *testing.T) {
	t.Parallel()

	// A wide, slow site: the seed links to many children and every fetch
	// takes long enough that cancellation lands mid-crawl.
	links := make([]string, 0, 50)
	responses := map[string]scriptedResponse{
		"http://site.test/": {status: http.StatusOK, body: "<html></html>"},
	}
	for i := range 50 {
		child := fmt.Sprintf("http://site.test/page-%d", i)
		links = append(links, child)
		responses[child] = scriptedResponse{status: http.StatusOK, body: "<html></html>"}
	}

	fetcher := &scriptedFetcher{delay: 30 * time.Millisecond, responses: responses}
	extractor := &mapExtractor{links: map[string][]string{"http://site.test/": links}}
	coord := NewCoordinator(fetcher, extractor,
		WithMaxDepth(1),
		WithWorkers(2),
		WithDefaultDelay(0),
		WithLogger(testLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	report, err := coord.Run(ctx, []string{"http://site.test/"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if report == nil {
		t.Fatal("expected a report even for a cancelled run")
	}
	if got := coord.State(); got != model.StateCompleted {
		t.Errorf("expected COMPLETED after shutdown, got %v", got)
	}
	if len(report.Results) >= 51 {
		t.Errorf("expected the cancel to cut the crawl short, got %d results", len(report.Results))
	}
	// Every result belongs to an entry a worker actually popped; the
	// queued remainder was dropped silently.
	if len(report.Results) == 0 {
		t.Error("expected at least the in-flight entries to finish")
	}
}

func TestCoordinatorStats(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{responses: map[string]scriptedResponse{
		"http://site.test/": {status: http.StatusOK, body: "<html>twelve bytes</html>"},
	}}
	coord := NewCoordinator(fetcher, &mapExtractor{},
		WithDefaultDelay(0),
		WithLogger(testLogger()),
	)

	if got := coord.Stats(); got.TotalProcessed() != 0 {
		t.Errorf("expected zero stats before Run, got %+v", got)
	}

	if _, err := coord.Run(context.Background(), []string{"http://site.test/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := coord.Stats()
	if snapshot.PagesCrawled != 1 {
		t.Errorf("expected 1 page crawled, got %d", snapshot.PagesCrawled)
	}
	if snapshot.BytesDownloaded != int64(len("<html>twelve bytes</html>")) {
		t.Errorf("expected body size counted, got %d", snapshot.BytesDownloaded)
	}
}
