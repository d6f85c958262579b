package upstream

import (
	"context"
	"io"
	"net/http"
)

// PageFetcher retrieves upstream HTML pages.
type PageFetcher interface {
	// FetchPage returns the body of the page at url. Non-2xx responses are errors.
	FetchPage(ctx context.Context, url string) (string, error)
}

// Prober checks whether a URL is servable without downloading it.
type Prober interface {
	// Probe issues a header-only request. Transport failures are reported in
	// the result, not as an error.
	Probe(ctx context.Context, url string) (*ProbeResult, error)
}

// MediaOpener starts a media fetch.
type MediaOpener interface {
	// Open fetches url, forwarding rangeHeader when non-empty. The caller
	// must close the returned Media body.
	Open(ctx context.Context, url, rangeHeader string) (*Media, error)
}

// ProbeResult contains information about a candidate media URL.
type ProbeResult struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
	Accessible    bool
	Error         string
}

// Media is an open upstream media response.
type Media struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
