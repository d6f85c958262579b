// Package cache keeps resolved media URLs for a bounded time so bursts of
// requests for one asset do not each hit the upstream page.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
)

// Resolver produces a media URL for an upstream reference.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type failure struct {
	err      error
	failedAt time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries  int    `json:"entries"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Failures uint64 `json:"failures"`
}

// ResolutionCache wraps a Resolver with a TTL cache. Concurrent misses for
// the same reference share one resolver call.
type ResolutionCache struct {
	resolver    Resolver
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu       sync.RWMutex
	entries  map[string]domain.CachedResolution
	failures map[string]failure

	group singleflight.Group

	hits     atomic.Uint64
	misses   atomic.Uint64
	failed   atomic.Uint64
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a ResolutionCache.
type Option func(*ResolutionCache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResolutionCache) {
		c.now = now
	}
}

// New creates a new resolution cache.
func New(resolver Resolver, cfg config.CacheConfig, logger *slog.Logger, opts ...Option) *ResolutionCache {
	c := &ResolutionCache{
		resolver:    resolver,
		ttl:         cfg.TTL,
		negativeTTL: cfg.NegativeTTL,
		now:         time.Now,
		logger:      logger,
		entries:     make(map[string]domain.CachedResolution),
		failures:    make(map[string]failure),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrResolve returns a cached media URL for ref, resolving it on a miss
// or after expiry. Failures are only remembered when a negative TTL is set.
func (c *ResolutionCache) GetOrResolve(ctx context.Context, ref string) (string, error) {
	if url, ok := c.lookup(ref); ok {
		c.hits.Add(1)
		return url, nil
	}
	if err, ok := c.lookupFailure(ref); ok {
		c.hits.Add(1)
		return "", err
	}
	c.misses.Add(1)

	// The shared call must not die with whichever caller started it;
	// the resolver bounds its own I/O with per-request timeouts.
	shared := context.WithoutCancel(ctx)

	ch := c.group.DoChan(ref, func() (interface{}, error) {
		// Another flight may have stored a fresh entry while we queued.
		if url, ok := c.lookup(ref); ok {
			return url, nil
		}
		url, err := c.resolver.Resolve(shared, ref)
		if err != nil {
			c.storeFailure(ref, err)
			return "", err
		}
		c.store(ref, url)
		return url, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("resolution coalesced", "ref", ref)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *ResolutionCache) lookup(ref string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ref]
	c.mu.RUnlock()

	if !ok || !entry.ValidAt(c.now(), c.ttl) {
		return "", false
	}
	return entry.MediaURL, true
}

func (c *ResolutionCache) lookupFailure(ref string) (error, bool) {
	if c.negativeTTL <= 0 {
		return nil, false
	}
	c.mu.RLock()
	f, ok := c.failures[ref]
	c.mu.RUnlock()

	if !ok || c.now().Sub(f.failedAt) >= c.negativeTTL {
		return nil, false
	}
	return f.err, true
}

func (c *ResolutionCache) store(ref, url string) {
	entry := domain.CachedResolution{
		UpstreamRef: ref,
		MediaURL:    url,
		ResolvedAt:  c.now(),
	}

	c.mu.Lock()
	c.entries[ref] = entry
	delete(c.failures, ref)
	c.mu.Unlock()
}

func (c *ResolutionCache) storeFailure(ref string, err error) {
	c.failed.Add(1)
	if c.negativeTTL <= 0 {
		return
	}

	c.mu.Lock()
	c.failures[ref] = failure{err: err, failedAt: c.now()}
	c.mu.Unlock()
}

// Get returns the live entry for ref without resolving.
func (c *ResolutionCache) Get(ref string) (domain.CachedResolution, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ref]
	c.mu.RUnlock()

	if !ok || !entry.ValidAt(c.now(), c.ttl) {
		return domain.CachedResolution{}, false
	}
	return entry, true
}

// Sweep removes expired entries and failures. It returns how many were removed.
func (c *ResolutionCache) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	defer c.mu.Unlock()

	for ref, entry := range c.entries {
		if !entry.ValidAt(now, c.ttl) {
			delete(c.entries, ref)
			removed++
		}
	}
	for ref, f := range c.failures {
		if now.Sub(f.failedAt) >= c.negativeTTL {
			delete(c.failures, ref)
			removed++
		}
	}
	return removed
}

// Stats returns cache counters.
func (c *ResolutionCache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:  entries,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failed.Load(),
	}
}
