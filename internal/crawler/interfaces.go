package crawler

import (
	"context"

	"github.com/nao1215/webspider/internal/model"
)

// Fetcher performs one HTTP fetch attempt. Implementations follow
// redirects and report the post-redirect URL in FetchResponse.FinalURL.
// Retrying is not the fetcher's job; the worker owns the retry budget and
// calls Fetch once per attempt.
//
// Design decision: The crawl engine depends on this interface rather than
// net/http directly because:
// 1. transport concerns (decoding, size caps, proxies) stay out of the
//    coordination logic
// 2. tests drive the engine with scripted responses and no sockets
// 3. the same engine crawls through any client an integrator provides
type Fetcher interface {
	// Fetch retrieves rawURL. It returns a response for every HTTP status
	// received; an error means no usable response exists (transport
	// failure or an aborted oversize body).
	Fetch(ctx context.Context, rawURL string) (*model.FetchResponse, error)
}

// LinkExtractor pulls crawlable links and the title out of an HTML
// document. Implementations are pure: no network access, relative links
// resolved against baseURL.
type LinkExtractor interface {
	// ExtractLinks returns the absolute URLs referenced by the document.
	// A parse error degrades to an empty list; the caller still treats
	// the page itself as fetched.
	ExtractLinks(body []byte, baseURL string) ([]string, error)

	// ExtractTitle returns the document title, or "" when there is none.
	ExtractTitle(body []byte) string
}

// Sink consumes crawl results as workers complete them. The engine makes
// no assumption about what a sink does with a result; database storage
// and progress displays are both sinks. Sink errors are logged and never
// interrupt the crawl.
type Sink interface {
	Record(ctx context.Context, result model.CrawlResult) error
}
