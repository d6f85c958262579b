package handler

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
	"github.com/iconidentify/streamvault/internal/service"
)

var embedTemplate = template.Must(template.New("embed").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Video Player</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { background: #000; overflow: hidden; }
    iframe { width: 100vw; height: 100vh; border: none; }
  </style>
</head>
<body>
  <iframe src="{{.}}" allowfullscreen allow="autoplay; fullscreen"></iframe>
</body>
</html>
`))

// EmbedHandler serves a page wrapping the upstream's own player.
type EmbedHandler struct {
	catalog  service.Catalog
	upstream config.UpstreamConfig
	logger   *slog.Logger
}

// NewEmbedHandler creates a new embed handler.
func NewEmbedHandler(catalog service.Catalog, upstream config.UpstreamConfig, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		catalog:  catalog,
		upstream: upstream,
		logger:   logger,
	}
}

// Embed handles GET /embed/{id}
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	entry, err := h.catalog.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrCatalogMiss) {
			http.Error(w, "Video not found", http.StatusNotFound)
			return
		}
		h.logger.Error("embed lookup failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := embedTemplate.Execute(&buf, h.upstream.EmbedURLFor(entry.UpstreamRef)); err != nil {
		h.logger.Error("render embed page", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
