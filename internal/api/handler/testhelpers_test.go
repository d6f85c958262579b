package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/streamvault/internal/cache"
	"github.com/iconidentify/streamvault/internal/catalog"
	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/resolver"
	"github.com/iconidentify/streamvault/internal/service"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testVideo is the media payload served by fakeUpstream.
var testVideo = bytes.Repeat([]byte("0123456789abcdef"), 4096)

// fakeUpstream stands in for the third-party host: it serves embed pages
// under /e/{ref}, media under /media/, and answers CDN probes under /cdn/.
type fakeUpstream struct {
	server *httptest.Server

	pageCalls  atomic.Int32
	mediaCalls atomic.Int32
	probeCalls atomic.Int32

	mu         sync.Mutex
	page       string
	pageStatus int
	media      http.HandlerFunc
	mediaReqs  []*http.Request
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	up := &fakeUpstream{pageStatus: http.StatusOK}
	up.media = func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "video.mp4", time.Time{}, bytes.NewReader(testVideo))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/e/", func(w http.ResponseWriter, r *http.Request) {
		up.pageCalls.Add(1)
		up.mu.Lock()
		status, page := up.pageStatus, up.page
		up.mu.Unlock()
		w.WriteHeader(status)
		io.WriteString(w, page)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		up.mediaCalls.Add(1)
		up.mu.Lock()
		up.mediaReqs = append(up.mediaReqs, r.Clone(r.Context()))
		media := up.media
		up.mu.Unlock()
		media(w, r)
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		up.probeCalls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	up.server = httptest.NewServer(mux)
	t.Cleanup(up.server.Close)

	up.page = `<script>jwplayer("v").setup({sources: [{file:"` + up.server.URL + `/media/video.mp4"}]});</script>`
	return up
}

func (u *fakeUpstream) setPage(status int, page string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pageStatus = status
	u.page = page
}

func (u *fakeUpstream) setMedia(h http.HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.media = h
}

func (u *fakeUpstream) lastMediaRequest() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.mediaReqs) == 0 {
		return nil
	}
	return u.mediaReqs[len(u.mediaReqs)-1]
}

func (u *fakeUpstream) upstreamCalls() int32 {
	return u.pageCalls.Load() + u.mediaCalls.Load() + u.probeCalls.Load()
}

// testEntries is the catalog used by handler tests.
func testEntries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{ID: "movie", Title: "Test Movie", Description: "A film", Thumbnail: "https://img.test/movie.jpg", Duration: "1h 30m", Year: "2024", UpstreamRef: "secretref1"},
		{ID: "short", Title: "Short", Description: "A short", Duration: "5m", Year: "2023", UpstreamRef: "secretref2"},
	}
}

func testUpstreamConfig(baseURL string) config.UpstreamConfig {
	cfg := config.Default().Upstream
	cfg.EmbedURL = baseURL + "/e/{ref}"
	cfg.Referer = baseURL + "/"
	cfg.Origin = baseURL
	cfg.CDNTemplates = []string{baseURL + "/cdn/{ref}.mp4"}
	cfg.PageTimeout = 5 * time.Second
	cfg.ProbeTimeout = 5 * time.Second
	return cfg
}

// testStack wires the real catalog, resolver, cache and stream service
// against a fakeUpstream.
type testStack struct {
	upstream *fakeUpstream
	catalog  *catalog.Catalog
	cache    *cache.ResolutionCache
	router   http.Handler
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	up := newFakeUpstream(t)

	videos, err := catalog.New(testEntries())
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	upCfg := testUpstreamConfig(up.server.URL)
	streamCfg := config.StreamConfig{
		ResponseHeaderTimeout: 5 * time.Second,
		StallTimeout:          5 * time.Second,
	}
	logger := testLogger()

	client := upstream.NewClient(upCfg, streamCfg, logger)
	res := resolver.New(client, client, upCfg, logger)
	resolutions := cache.New(res, config.CacheConfig{TTL: time.Hour}, logger)
	streams := service.NewStreamService(videos, resolutions, client, logger)

	streamHandler := NewStreamHandler(streams, logger)
	r := chi.NewRouter()
	r.Get("/stream", streamHandler.Stream)
	r.Head("/stream", streamHandler.Stream)
	r.Get("/api/videos", NewCatalogHandler(videos).List)
	r.Get("/embed/{id}", NewEmbedHandler(videos, upCfg, logger).Embed)

	return &testStack{
		upstream: up,
		catalog:  videos,
		cache:    resolutions,
		router:   r,
	}
}

func (s *testStack) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// errorBody decodes the {"error": ...} message, or returns the raw body.
func errorBody(w *httptest.ResponseRecorder) string {
	body := strings.TrimSpace(w.Body.String())
	const prefix, suffix = `{"error":"`, `"}`
	if strings.HasPrefix(body, prefix) && strings.HasSuffix(body, suffix) {
		return body[len(prefix) : len(body)-len(suffix)]
	}
	return body
}
