package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/service"
)

const relayBufferSize = 32 * 1024

// StreamHandler relays upstream media to clients.
type StreamHandler struct {
	streams *service.StreamService
	logger  *slog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(streams *service.StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		streams: streams,
		logger:  logger,
	}
}

// Stream handles GET and HEAD /stream?id={id}
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	stream, err := h.streams.Open(r.Context(), id, r.Header.Get("Range"))
	if err != nil {
		h.writeStreamError(w, err)
		return
	}

	media := stream.Media
	status := media.StatusCode

	header := w.Header()
	contentType := media.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	header.Set("Content-Type", contentType)
	header.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Access-Control-Allow-Origin", "*")
	if cl := media.Header.Get("Content-Length"); cl != "" {
		header.Set("Content-Length", cl)
	}

	acceptRanges := "bytes"
	if cr := media.Header.Get("Content-Range"); cr != "" || status == http.StatusPartialContent {
		if cr != "" {
			header.Set("Content-Range", cr)
		}
		if ar := media.Header.Get("Accept-Ranges"); ar != "" {
			acceptRanges = ar
		}
		status = http.StatusPartialContent
	}
	header.Set("Accept-Ranges", acceptRanges)

	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		h.streams.Finish(stream, 0, nil)
		return
	}

	written, err := relay(r.Context(), w, media.Body)
	h.streams.Finish(stream, written, err)
}

func (h *StreamHandler) writeStreamError(w http.ResponseWriter, err error) {
	var statusErr *domain.UpstreamStatusError

	switch {
	case errors.Is(err, domain.ErrCatalogMiss):
		writeError(w, http.StatusNotFound, "video not found")
	case errors.Is(err, domain.ErrStreamAborted):
		// Client is gone; nothing to write.
	case errors.Is(err, domain.ErrResolutionFailed):
		writeError(w, http.StatusInternalServerError, "could not retrieve video")
	case errors.As(err, &statusErr):
		writeError(w, statusErr.StatusCode, "stream failed")
	default:
		h.logger.Error("stream failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stream failed")
	}
}

// relay copies body to w chunk by chunk, flushing after each write so the
// client sees bytes as soon as the upstream sends them.
func relay(ctx context.Context, w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, relayBufferSize)
	var written int64

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, fmt.Errorf("%w: %w", domain.ErrStreamAborted, werr)
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return written, fmt.Errorf("%w: %w", domain.ErrStreamAborted, ferr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return written, fmt.Errorf("%w: %w", domain.ErrStreamAborted, ctx.Err())
			}
			return written, rerr
		}
	}
}
