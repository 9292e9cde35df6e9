package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/webspider/internal/model"
)

// HTTPFetcher retrieves pages over HTTP and HTTPS. It performs exactly
// one request cycle per Fetch call: redirects are followed up to a bound,
// the body is decoded and size-capped, and every received status code is
// returned as a response. Retry policy lives in the caller.
//
// Design decision: We build the http.Client without a client-level
// timeout because:
//  1. The caller bounds each attempt with a context deadline
//  2. A client timeout would race the context and produce two error shapes
//  3. Tests can still inject a fully custom client
type HTTPFetcher struct {
	// client is the HTTP client used for all requests.
	client *http.Client

	// userAgent is the User-Agent header sent with every request.
	userAgent string

	// maxBodySize caps the decoded response body in bytes.
	maxBodySize int64

	// maxRedirects bounds how many redirects one fetch may follow.
	maxRedirects int
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = userAgent
	}
}

// WithMaxBodySize caps the decoded response body size in bytes.
// Responses that exceed the cap abort with a model.OversizeError.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithMaxRedirects bounds how many redirects a single fetch follows.
func WithMaxRedirects(n int) Option {
	return func(f *HTTPFetcher) {
		f.maxRedirects = n
	}
}

// WithClient replaces the underlying HTTP client. The redirect bound is
// still installed on the replacement.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates a fetcher with connection pooling and sane
// transport defaults.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent:    "webspider/1.0",
		maxBodySize:  10 * 1024 * 1024,
		maxRedirects: 10,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		}
	}
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= f.maxRedirects {
			return fmt.Errorf("stopped after %d redirects", f.maxRedirects)
		}
		return nil
	}

	return f
}

// Fetch performs one GET request cycle for rawURL. Redirects are followed
// within the bound and the final URL is reported on the response. The
// returned error is a *model.NetworkError for transport failures and a
// *model.OversizeError when the body exceeds the size cap; any received
// HTTP status, 2xx or not, comes back as a response.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	// Setting Accept-Encoding ourselves disables the transport's
	// transparent gzip, so decoding below handles all three codings.
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	// A Content-Length already over the cap aborts before any body bytes
	// are read.
	if resp.ContentLength > f.maxBodySize {
		return nil, &model.OversizeError{URL: rawURL, Limit: f.maxBodySize}
	}

	body, err := f.readBody(rawURL, resp)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &model.FetchResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
		FinalURL:   finalURL,
	}, nil
}

// readBody decodes the response body per its Content-Encoding and reads
// it up to the size cap.
func (f *HTTPFetcher) readBody(rawURL string, resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &model.NetworkError{URL: rawURL, Err: fmt.Errorf("gzip decode: %w", err)}
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	// Read one byte past the cap so an exactly-at-limit body is
	// distinguishable from an oversized one.
	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &model.OversizeError{URL: rawURL, Limit: f.maxBodySize}
	}
	return body, nil
}
