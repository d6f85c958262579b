package handler

import (
	"net/http"

	"github.com/iconidentify/streamvault/internal/domain"
)

// PublicCatalog exposes the sanitized catalog view.
type PublicCatalog interface {
	Public() map[string]domain.PublicEntry
}

// CatalogHandler serves catalog metadata.
type CatalogHandler struct {
	catalog PublicCatalog
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog PublicCatalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List handles GET /api/videos
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Public())
}
