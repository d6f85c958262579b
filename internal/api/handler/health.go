package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/iconidentify/streamvault/internal/cache"
)

var startTime = time.Now()

// CatalogSizer reports how many entries are loaded.
type CatalogSizer interface {
	Len() int
}

// CacheStatser reports resolution cache counters.
type CacheStatser interface {
	Stats() cache.Stats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	catalog CatalogSizer
	cache   CacheStatser
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(catalog CatalogSizer, cache CacheStatser) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		cache:   cache,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Details   *ReadyDetails `json:"details,omitempty"`
}

// ReadyDetails describes the serving state.
type ReadyDetails struct {
	CatalogEntries int         `json:"catalog_entries"`
	Cache          cache.Stats `json:"cache"`
	UptimeHuman    string      `json:"uptime_human"`
	NumGoroutines  int         `json:"num_goroutines"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. An empty catalog has nothing
// to serve and reports unavailable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	details := &ReadyDetails{
		CatalogEntries: h.catalog.Len(),
		Cache:          h.cache.Stats(),
		UptimeHuman:    formatUptime(time.Since(startTime)),
		NumGoroutines:  runtime.NumGoroutine(),
	}

	status, code := "ok", http.StatusOK
	if details.CatalogEntries == 0 {
		status, code = "error", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   details,
	})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
