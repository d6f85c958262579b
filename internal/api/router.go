package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/streamvault/internal/api/handler"
	mw "github.com/iconidentify/streamvault/internal/api/middleware"
)

// requestTimeout bounds every route except /stream, whose responses last as
// long as playback does.
const requestTimeout = 2 * time.Minute

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	catalogHandler *handler.CatalogHandler,
	streamHandler *handler.StreamHandler,
	embedHandler *handler.EmbedHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// CORS for third-party players
	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Media relay, no request deadline
	r.Get("/stream", streamHandler.Stream)
	r.Head("/stream", streamHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/api/videos", catalogHandler.List)
		r.Get("/embed/{id}", embedHandler.Embed)
	})

	// Web UI, also the fallback for client-side routes
	r.Get("/", uiHandler.Index)
	r.NotFound(uiHandler.Index)

	return r
}
