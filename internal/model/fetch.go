package model

import (
	"mime"
	"net/http"
	"strings"
)

// FetchResponse is the transport-level result of one HTTP fetch attempt.
// Redirects are followed by the fetcher; FinalURL is where the response
// actually came from.
type FetchResponse struct {
	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains the response headers of the final response.
	Headers http.Header `json:"-"`

	// Body is the decoded response body. Its length never exceeds the
	// fetcher's configured size limit.
	Body []byte `json:"-"`

	// FinalURL is the URL after all redirects were followed.
	FinalURL string `json:"final_url"`
}

// ContentType returns the media type of the response without parameters,
// lowercased. Empty when the header is missing. Malformed parameter
// sections are ignored rather than discarding the media type.
func (r *FetchResponse) ContentType() string {
	raw := r.Headers.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
	}
	return mediaType
}

// IsHTML reports whether the response body is an HTML document.
// A missing Content-Type header is treated as HTML so that minimal test
// servers and misconfigured hosts still get parsed.
func (r *FetchResponse) IsHTML() bool {
	contentType := r.ContentType()
	if contentType == "" {
		return true
	}
	return contentType == "text/html" || contentType == "application/xhtml+xml"
}
