package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/upstream"
)

// Catalog looks up catalog entries by client-facing id.
type Catalog interface {
	Lookup(id string) (domain.CatalogEntry, error)
}

// Resolutions returns a media URL for an upstream reference.
type Resolutions interface {
	GetOrResolve(ctx context.Context, ref string) (string, error)
}

// StreamService opens upstream media for catalog entries.
type StreamService struct {
	catalog     Catalog
	resolutions Resolutions
	media       upstream.MediaOpener
	logger      *slog.Logger
}

// NewStreamService creates a new stream service.
func NewStreamService(
	catalog Catalog,
	resolutions Resolutions,
	media upstream.MediaOpener,
	logger *slog.Logger,
) *StreamService {
	return &StreamService{
		catalog:     catalog,
		resolutions: resolutions,
		media:       media,
		logger:      logger,
	}
}

// Stream is an open relay from the upstream to one client.
type Stream struct {
	ID      string
	EntryID string
	Media   *upstream.Media
}

// Open looks up id, resolves its media URL and starts the upstream fetch,
// forwarding rangeHeader verbatim. The caller must close Stream.Media.Body.
//
// Errors: domain.ErrCatalogMiss when id is unknown (no upstream I/O happens),
// domain.ErrResolutionFailed when no media URL could be found,
// *domain.UpstreamStatusError when the media host refused the fetch, and
// domain.ErrStreamAborted when ctx ended first.
func (s *StreamService) Open(ctx context.Context, id, rangeHeader string) (*Stream, error) {
	entry, err := s.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}

	streamID := uuid.NewString()
	logger := s.logger.With("stream_id", streamID, "video_id", id)

	mediaURL, err := s.resolutions.GetOrResolve(ctx, entry.UpstreamRef)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, ctx.Err())
		}
		if !errors.Is(err, domain.ErrResolutionFailed) {
			err = domain.NewResolutionError(entry.UpstreamRef, err, nil)
		}
		logger.Error("could not resolve media", "error", err)
		return nil, err
	}

	media, err := s.media.Open(ctx, mediaURL, rangeHeader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, ctx.Err())
		}
		logger.Error("upstream media fetch failed", "error", err)
		return nil, err
	}

	logger.Info("stream opened",
		"status", media.StatusCode,
		"range", rangeHeader,
		"content_length", media.Header.Get("Content-Length"),
	)

	return &Stream{
		ID:      streamID,
		EntryID: id,
		Media:   media,
	}, nil
}

// Finish records how a relay ended and releases the upstream body.
func (s *StreamService) Finish(stream *Stream, written int64, err error) {
	stream.Media.Body.Close()

	logger := s.logger.With("stream_id", stream.ID, "video_id", stream.EntryID, "bytes", written)
	switch {
	case err == nil:
		logger.Info("stream completed")
	case errors.Is(err, domain.ErrStreamAborted):
		logger.Info("stream aborted by client")
	default:
		logger.Warn("stream interrupted", "error", err)
	}
}
