package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCatalog is a test implementation of Catalog.
type mockCatalog struct {
	entries map[string]domain.CatalogEntry
}

func newMockCatalog(entries ...domain.CatalogEntry) *mockCatalog {
	m := &mockCatalog{entries: make(map[string]domain.CatalogEntry)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockCatalog) Lookup(id string) (domain.CatalogEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return domain.CatalogEntry{}, domain.ErrCatalogMiss
	}
	return e, nil
}

// mockResolutions is a test implementation of Resolutions.
type mockResolutions struct {
	mu    sync.Mutex
	urls  map[string]string
	err   error
	calls []string
}

func (m *mockResolutions) GetOrResolve(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ref)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.urls[ref], nil
}

// mockMediaOpener is a test implementation of upstream.MediaOpener.
type mockMediaOpener struct {
	mu     sync.Mutex
	status int
	header http.Header
	body   string
	err    error
	calls  []mediaCall
	bodies []*trackingBody
}

type mediaCall struct {
	url         string
	rangeHeader string
}

func (m *mockMediaOpener) Open(ctx context.Context, url, rangeHeader string) (*upstream.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mediaCall{url: url, rangeHeader: rangeHeader})
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	header := m.header
	if header == nil {
		header = http.Header{}
	}
	body := &trackingBody{Reader: strings.NewReader(m.body)}
	m.bodies = append(m.bodies, body)
	return &upstream.Media{StatusCode: status, Header: header, Body: body}, nil
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

var _ upstream.MediaOpener = (*mockMediaOpener)(nil)
