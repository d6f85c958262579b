// Package upstream talks to the third-party media host with browser-like
// request fingerprints.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
)

const (
	pageAccept     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	pageLanguage   = "en-US,en;q=0.5"
	mediaLanguage  = "en-US,en;q=0.9"
	identityCoding = "identity"
)

// Client implements PageFetcher, Prober and MediaOpener over HTTP.
type Client struct {
	// client is used for pages and probes, bounded per call by context deadlines
	client *http.Client
	// streamClient is used for media with no overall timeout, only a header timeout
	streamClient *http.Client
	cfg          config.UpstreamConfig
	streamCfg    config.StreamConfig
	logger       *slog.Logger
}

// NewClient creates a new upstream client.
func NewClient(cfg config.UpstreamConfig, streamCfg config.StreamConfig, logger *slog.Logger) *Client {
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = streamCfg.ResponseHeaderTimeout
	// Byte ranges and lengths must refer to the identity encoding.
	streamTransport.DisableCompression = true

	return &Client{
		client:       &http.Client{},
		streamClient: &http.Client{Transport: streamTransport},
		cfg:          cfg,
		streamCfg:    streamCfg,
		logger:       logger,
	}
}

// FetchPage fetches an upstream HTML page.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", pageAccept)
	req.Header.Set("Accept-Language", pageLanguage)
	req.Header.Set("Referer", c.cfg.Referer)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPageFetchFailed, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("%w: %w", domain.ErrPageFetchFailed, &domain.UpstreamStatusError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", domain.ErrPageFetchFailed, err)
	}

	return string(body), nil
}

// Probe checks URL accessibility with a HEAD request.
func (c *Client) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	if c.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Referer", c.cfg.Referer)

	resp, err := c.client.Do(req)
	if err != nil {
		return &ProbeResult{
			Accessible: false,
			Error:      err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Accessible:    isSuccess(resp.StatusCode),
	}

	if !result.Accessible {
		result.Error = fmt.Sprintf("status code %d", resp.StatusCode)
	}

	return result, nil
}

// Open starts a media fetch. The returned body is cancelled when closed,
// when ctx ends, when no byte arrives within the stall timeout, or when the
// configured maximum duration elapses.
func (c *Client) Open(ctx context.Context, url, rangeHeader string) (*Media, error) {
	var cancel context.CancelFunc
	if c.streamCfg.MaxDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.streamCfg.MaxDuration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", mediaLanguage)
	req.Header.Set("Accept-Encoding", identityCoding)
	req.Header.Set("Referer", c.cfg.Referer)
	if c.cfg.Origin != "" {
		req.Header.Set("Origin", c.cfg.Origin)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamFetchFailed, err)
	}

	if !isSuccess(resp.StatusCode) {
		resp.Body.Close()
		cancel()
		return nil, &domain.UpstreamStatusError{StatusCode: resp.StatusCode}
	}

	return &Media{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       newStallGuard(resp.Body, cancel, c.streamCfg.StallTimeout, c.logger),
	}, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

var _ interface {
	PageFetcher
	Prober
	MediaOpener
} = (*Client)(nil)
