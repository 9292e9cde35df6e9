package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/nao1215/webspider/internal/model"
)

// retryBaseDelay is the first backoff interval between fetch attempts.
// Later intervals grow exponentially with jitter.
const retryBaseDelay = 500 * time.Millisecond

// runWorker drains the frontier until it reports the crawl over. Each
// popped entry produces exactly one result on the results channel, and
// the entry stays in flight until its discovered children were offered to
// the frontier.
func (c *Coordinator) runWorker(ctx context.Context, id int) {
	logger := c.logger.With("worker", id)

	for {
		entry, ok := c.frontier.Pop()
		if !ok {
			c.enterDraining()
			logger.Debug("worker exiting")
			return
		}

		result := c.processEntry(ctx, entry)
		logger.Debug("processed",
			"url", entry.URL,
			"depth", entry.Depth,
			"outcome", result.Outcome.String(),
			"duration", result.Duration)

		c.results <- result
		c.frontier.Done()
	}
}

// processEntry runs one frontier entry through the politeness gates, the
// fetch, and link extraction, stamping timing on the result.
func (c *Coordinator) processEntry(ctx context.Context, entry model.URLEntry) model.CrawlResult {
	started := time.Now()
	result := c.crawlEntry(ctx, entry)
	result.FetchedAt = started
	result.Duration = time.Since(started)
	return result
}

// crawlEntry fetches a single admitted URL and offers its links back to
// the frontier. Politeness gates run first: a robots denial skips the URL
// before any rate slot is consumed, and the robots fetch itself is not
// rate limited.
func (c *Coordinator) crawlEntry(ctx context.Context, entry model.URLEntry) model.CrawlResult {
	if !c.robots.IsAllowed(ctx, entry.URL) {
		return model.NewSkippedResult(entry.URL, entry.Depth, model.SkipRobotsDisallowed)
	}

	if err := c.limiter.AwaitSlot(ctx, domainOf(entry.URL)); err != nil {
		// Cancelled while waiting for the domain's turn.
		return model.NewFailedResult(entry.URL, entry.Depth, err)
	}

	resp, err := c.fetchWithRetry(ctx, entry.URL)
	if err != nil {
		var oversize *model.OversizeError
		if errors.As(err, &oversize) {
			return model.NewSkippedResult(entry.URL, entry.Depth, model.SkipOversize)
		}
		return model.NewFailedResult(entry.URL, entry.Depth, err)
	}

	if !resp.IsHTML() {
		result := model.NewSkippedResult(entry.URL, entry.Depth, model.SkipNotHTML)
		result.StatusCode = resp.StatusCode
		result.FinalURL = resp.FinalURL
		return result
	}

	// Resolve links against the post-redirect URL, then offer each child
	// to the frontier one depth down. Admission handles dedup, the depth
	// bound, and the page budget.
	links, err := c.extractor.ExtractLinks(resp.Body, resp.FinalURL)
	if err != nil {
		// Malformed HTML degrades to a page with no links.
		c.logger.Debug("link extraction failed", "url", entry.URL, "error", err)
		links = nil
	}

	children := make([]string, 0, len(links))
	for _, link := range links {
		canonical, err := Canonicalize(link)
		if err != nil {
			continue
		}
		children = append(children, canonical)
		c.frontier.TryAdmit(model.NewURLEntry(canonical, entry.Depth+1, entry.URL))
	}

	title := c.extractor.ExtractTitle(resp.Body)
	result := model.NewSuccessResult(entry.URL, entry.Depth, resp.StatusCode, title, children, int64(len(resp.Body)))
	result.FinalURL = resp.FinalURL
	return result
}

// fetchWithRetry runs the bounded attempt loop for one URL: attempt,
// classify, back off, attempt again. Only network errors and retryable
// HTTP statuses (5xx, 429) consume further attempts; everything else is
// terminal the first time it appears. The URL never re-enters the
// frontier regardless of how the loop ends.
func (c *Coordinator) fetchWithRetry(ctx context.Context, rawURL string) (*model.FetchResponse, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryBaseDelay
	policy.MaxElapsedTime = 0
	policy.Reset()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := policy.NextBackOff()
			c.logger.Debug("retrying fetch",
				"url", rawURL, "attempt", attempt, "backoff", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		// The attempt context survives an external cancel: a fetch in
		// flight runs to completion or its own timeout, and cancellation
		// is honored between attempts instead.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
		resp, err := c.fetcher.Fetch(attemptCtx, rawURL)
		cancel()

		if err != nil {
			lastErr = err
			if model.IsRetryableError(err) && ctx.Err() == nil {
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		httpErr := &model.HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
		lastErr = httpErr
		if httpErr.Retryable() && ctx.Err() == nil {
			continue
		}
		return nil, httpErr
	}

	return nil, lastErr
}
