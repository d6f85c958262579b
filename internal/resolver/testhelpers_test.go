package resolver

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.UpstreamConfig {
	cfg := config.Default().Upstream
	cfg.EmbedURL = "https://upstream.test/e/" + config.RefPlaceholder
	cfg.CDNTemplates = []string{
		"https://cdn1.test/" + config.RefPlaceholder + ".mp4",
		"https://cdn2.test/" + config.RefPlaceholder + ".mp4",
		"https://cdn3.test/" + config.RefPlaceholder + ".mp4",
	}
	return cfg
}

// mockPages is a test implementation of upstream.PageFetcher.
type mockPages struct {
	body  string
	err   error
	calls atomic.Int32

	mu   sync.Mutex
	urls []string
}

func (m *mockPages) FetchPage(ctx context.Context, url string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.body, nil
}

// mockProber is a test implementation of upstream.Prober.
type mockProber struct {
	accessible map[string]bool

	mu    sync.Mutex
	calls []string
}

func (m *mockProber) Probe(ctx context.Context, url string) (*upstream.ProbeResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	if m.accessible[url] {
		return &upstream.ProbeResult{StatusCode: 206, Accessible: true}, nil
	}
	return &upstream.ProbeResult{StatusCode: 404, Error: "status code 404"}, nil
}

func (m *mockProber) probed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newTestResolver(pages *mockPages, prober *mockProber) *Resolver {
	return New(pages, prober, testConfig(), testLogger())
}
