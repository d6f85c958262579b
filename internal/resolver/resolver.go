// Package resolver turns an upstream reference into a fetchable media URL
// by running an ordered chain of extraction strategies over the upstream
// embed page.
package resolver

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// Resolver applies strategies in order and returns the first match.
type Resolver struct {
	pages      upstream.PageFetcher
	cfg        config.UpstreamConfig
	strategies []Strategy
	logger     *slog.Logger
}

// New creates a resolver with the default strategy chain.
func New(pages upstream.PageFetcher, prober upstream.Prober, cfg config.UpstreamConfig, logger *slog.Logger) *Resolver {
	return NewWithStrategies(pages, cfg, DefaultStrategies(cfg, prober, logger), logger)
}

// NewWithStrategies creates a resolver with a custom strategy chain.
func NewWithStrategies(pages upstream.PageFetcher, cfg config.UpstreamConfig, strategies []Strategy, logger *slog.Logger) *Resolver {
	return &Resolver{
		pages:      pages,
		cfg:        cfg,
		strategies: strategies,
		logger:     logger,
	}
}

// Resolve returns a media URL for ref. Every failure is a
// *domain.ResolutionError matching domain.ErrResolutionFailed.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	pageURL := r.cfg.EmbedURLFor(ref)

	body, err := r.pages.FetchPage(ctx, pageURL)
	if err != nil {
		r.logger.Warn("embed page fetch failed", "ref", ref, "error", err)
		return "", domain.NewResolutionError(ref, err, nil)
	}

	page := &Page{Ref: ref, URL: pageURL, Body: body}
	attempts := make([]domain.Attempt, 0, len(r.strategies))

	for i, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return "", domain.NewResolutionError(ref, err, attempts)
		}

		raw, ok := s.Extract(ctx, page)
		var mediaURL string
		if ok {
			mediaURL, ok = normalize(pageURL, raw)
		}
		attempts = append(attempts, domain.Attempt{Index: i, Strategy: s.Name(), Matched: ok})

		if ok {
			r.logger.Debug("media url resolved", "ref", ref, "strategy", s.Name(), "index", i)
			return mediaURL, nil
		}
	}

	r.logger.Warn("no strategy matched", "ref", ref, "strategies", len(r.strategies), "page_bytes", len(body))
	return "", domain.NewResolutionError(ref, domain.ErrNoStrategyMatched, attempts)
}

// normalize unescapes \/ sequences and resolves relative candidates
// against the page URL. Only http(s) results are accepted.
func normalize(pageURL, raw string) (string, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, `\/`, "/"))
	if cleaned == "" {
		return "", false
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", false
		}
		u = base.ResolveReference(u)
		cleaned = u.String()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return cleaned, true
}
