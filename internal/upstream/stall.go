package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iconidentify/streamvault/internal/domain"
)

// stallGuard wraps an upstream body, cancelling the fetch when no data
// arrives for stallTimeout and on Close.
type stallGuard struct {
	reader       io.ReadCloser
	cancel       context.CancelFunc
	stallTimeout time.Duration
	timer        *time.Timer
	stalled      atomic.Bool
	relayed      atomic.Int64
	started      time.Time
	logger       *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func newStallGuard(r io.ReadCloser, cancel context.CancelFunc, stallTimeout time.Duration, logger *slog.Logger) *stallGuard {
	g := &stallGuard{
		reader:       r,
		cancel:       cancel,
		stallTimeout: stallTimeout,
		started:      time.Now(),
		logger:       logger,
	}
	if stallTimeout > 0 {
		g.timer = time.AfterFunc(stallTimeout, func() {
			g.stalled.Store(true)
			cancel()
		})
	}
	return g
}

func (g *stallGuard) Read(buf []byte) (int, error) {
	n, err := g.reader.Read(buf)
	if n > 0 {
		g.relayed.Add(int64(n))
		if g.timer != nil {
			g.timer.Reset(g.stallTimeout)
		}
	}
	if err != nil && !errors.Is(err, io.EOF) && g.stalled.Load() {
		return n, domain.ErrUpstreamStalled
	}
	return n, err
}

// Close stops the timer, cancels the upstream request and closes the body.
// It is safe to call more than once.
func (g *stallGuard) Close() error {
	g.closeOnce.Do(func() {
		if g.timer != nil {
			g.timer.Stop()
		}
		g.cancel()
		g.closeErr = g.reader.Close()

		g.logger.Debug("upstream body closed",
			"relayed_bytes", g.relayed.Load(),
			"duration", time.Since(g.started),
			"stalled", g.stalled.Load(),
		)
	})
	return g.closeErr
}

// Relayed returns the number of bytes read from upstream so far.
func (g *stallGuard) Relayed() int64 {
	return g.relayed.Load()
}
