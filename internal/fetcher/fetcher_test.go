package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/webspider/internal/model"
)

func TestHTTPFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches a plain page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if _, err := w.Write([]byte("<html><title>Hi</title></html>")); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if string(resp.Body) != "<html><title>Hi</title></html>" {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if !resp.IsHTML() {
			t.Error("expected an HTML response")
		}
		if resp.FinalURL != server.URL {
			t.Errorf("expected final URL %q, got %q", server.URL, resp.FinalURL)
		}
	})

	t.Run("sends identifying headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotAccept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithUserAgent("webspider/2.0 (+https://example.com/bot)"))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotUA != "webspider/2.0 (+https://example.com/bot)" {
			t.Errorf("unexpected User-Agent %q", gotUA)
		}
		if !strings.Contains(gotAccept, "text/html") {
			t.Errorf("expected an HTML-leaning Accept header, got %q", gotAccept)
		}
	})

	t.Run("returns non-2xx statuses as responses", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("expected a response, got error %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
	})

	t.Run("decodes gzip bodies", func(t *testing.T) {
		t.Parallel()

		const page = "<html>compressed greetings</html>"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				t.Error("expected gzip offered in Accept-Encoding")
			}
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			if _, err := gz.Write([]byte(page)); err != nil {
				t.Errorf("gzip write failed: %v", err)
			}
			if err := gz.Close(); err != nil {
				t.Errorf("gzip close failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != page {
			t.Errorf("expected decoded body, got %q", resp.Body)
		}
	})

	t.Run("decodes deflate bodies", func(t *testing.T) {
		t.Parallel()

		const page = "<html>deflated</html>"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "deflate")
			fl, err := flate.NewWriter(w, flate.DefaultCompression)
			if err != nil {
				t.Errorf("flate writer failed: %v", err)
				return
			}
			if _, err := fl.Write([]byte(page)); err != nil {
				t.Errorf("flate write failed: %v", err)
			}
			if err := fl.Close(); err != nil {
				t.Errorf("flate close failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != page {
			t.Errorf("expected decoded body, got %q", resp.Body)
		}
	})

	t.Run("decodes brotli bodies", func(t *testing.T) {
		t.Parallel()

		const page = "<html>brotli says hello</html>"
		var compressed bytes.Buffer
		br := brotli.NewWriter(&compressed)
		if _, err := br.Write([]byte(page)); err != nil {
			t.Fatalf("brotli write failed: %v", err)
		}
		if err := br.Close(); err != nil {
			t.Fatalf("brotli close failed: %v", err)
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			if _, err := w.Write(compressed.Bytes()); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != page {
			t.Errorf("expected decoded body, got %q", resp.Body)
		}
	})

	t.Run("follows redirects and reports the final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/end", http.StatusFound)
		})
		mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
			if _, err := w.Write([]byte("<html>made it</html>")); err != nil {
				t.Errorf("write failed: %v", err)
			}
		})

		f := NewHTTPFetcher()
		resp, err := f.Fetch(context.Background(), server.URL+"/start")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.FinalURL != server.URL+"/end" {
			t.Errorf("expected final URL %q, got %q", server.URL+"/end", resp.FinalURL)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 after redirects, got %d", resp.StatusCode)
		}
	})

	t.Run("stops runaway redirect chains", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithMaxRedirects(3))
		_, err := f.Fetch(context.Background(), server.URL+"/loop")
		if err == nil {
			t.Fatal("expected an error for an endless redirect chain")
		}

		var netErr *model.NetworkError
		if !errors.As(err, &netErr) {
			t.Errorf("expected a network error, got %T: %v", err, err)
		}
	})

	t.Run("aborts oversized bodies while reading", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Flush forces chunked encoding so no Content-Length is sent.
			w.WriteHeader(http.StatusOK)
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
			if _, err := w.Write(bytes.Repeat([]byte("a"), 2048)); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithMaxBodySize(1024))
		_, err := f.Fetch(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected an oversize error")
		}

		var oversize *model.OversizeError
		if !errors.As(err, &oversize) {
			t.Fatalf("expected an oversize error, got %T: %v", err, err)
		}
		if oversize.Limit != 1024 {
			t.Errorf("expected limit 1024, got %d", oversize.Limit)
		}
	})

	t.Run("aborts on oversized Content-Length without reading", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := bytes.Repeat([]byte("b"), 4096)
			w.Header().Set("Content-Length", "4096")
			if _, err := w.Write(body); err != nil {
				// The client may hang up as soon as it sees the header.
				return
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithMaxBodySize(512))
		_, err := f.Fetch(context.Background(), server.URL)

		var oversize *model.OversizeError
		if !errors.As(err, &oversize) {
			t.Fatalf("expected an oversize error, got %T: %v", err, err)
		}
	})

	t.Run("body exactly at the limit is accepted", func(t *testing.T) {
		t.Parallel()

		body := bytes.Repeat([]byte("c"), 1024)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := w.Write(body); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}))
		defer server.Close()

		f := NewHTTPFetcher(WithMaxBodySize(1024))
		resp, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 1024 {
			t.Errorf("expected the full body, got %d bytes", len(resp.Body))
		}
	})

	t.Run("wraps connection failures as network errors", func(t *testing.T) {
		t.Parallel()

		// A server started and immediately closed leaves a port nothing
		// listens on.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		deadURL := server.URL
		server.Close()

		f := NewHTTPFetcher()
		_, err := f.Fetch(context.Background(), deadURL)
		if err == nil {
			t.Fatal("expected an error for a dead server")
		}

		var netErr *model.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected a network error, got %T: %v", err, err)
		}
		if !model.IsRetryableError(err) {
			t.Error("connection failures should be retryable")
		}
	})

	t.Run("honors the context deadline", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		f := NewHTTPFetcher()
		start := time.Now()
		_, err := f.Fetch(ctx, server.URL)
		if err == nil {
			t.Fatal("expected a timeout error")
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("fetch took %v despite a 50ms deadline", elapsed)
		}

		var netErr *model.NetworkError
		if !errors.As(err, &netErr) {
			t.Errorf("expected a network error, got %T: %v", err, err)
		}
	})
}
