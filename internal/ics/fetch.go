package ics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultFetchTimeout = 15 * time.Second

// Fetcher retrieves one ICS feed with conditional requests. It remembers
// the last ETag/Last-Modified validators and the last body, so an
// unchanged feed answers 304 and is served from memory. Any non-200
// status besides that, a transport error, or an empty body is a fetch
// failure; the engine is not invoked on failures.
type Fetcher struct {
	client *resty.Client
	url    string

	mu           sync.Mutex
	etag         string
	lastModified string
	body         string
}

// NewFetcher builds a Fetcher for one feed URL. A non-positive timeout
// falls back to the default.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

// Fetch returns the current feed text.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req := f.client.R().SetContext(ctx)
	if f.etag != "" {
		req.SetHeader("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.SetHeader("If-Modified-Since", f.lastModified)
	}

	resp, err := req.Get(f.url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if resp.StatusCode() == http.StatusNotModified && f.body != "" {
		return f.body, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode())
	}

	body := resp.String()
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyFeed
	}

	f.etag = resp.Header().Get("ETag")
	f.lastModified = resp.Header().Get("Last-Modified")
	f.body = body
	return body, nil
}

// RedactURL hides the path and query of a feed URL for logging; shared
// calendar URLs routinely embed access tokens.
func RedactURL(u string) string {
	const suffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return u[:i+3+j] + suffix
	}
	return u + suffix
}
