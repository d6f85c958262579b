package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Catalog Tests
// =============================================================================

func TestCatalogEntry_Public(t *testing.T) {
	entry := CatalogEntry{
		ID:          "movie",
		Title:       "Movie",
		Description: "A film",
		Thumbnail:   "https://img.test/m.jpg",
		Duration:    "1h 30m",
		Year:        "2024",
		UpstreamRef: "secret",
	}

	pub := entry.Public()

	if pub.ID != "movie" || pub.Title != "Movie" || pub.Description != "A film" {
		t.Errorf("Public() = %+v", pub)
	}
	if pub.Thumbnail != entry.Thumbnail || pub.Duration != entry.Duration || pub.Year != entry.Year {
		t.Errorf("Public() = %+v", pub)
	}
}

func TestCatalogEntry_JSONOmitsUpstreamRef(t *testing.T) {
	entry := CatalogEntry{ID: "movie", Title: "Movie", UpstreamRef: "secret"}

	for name, v := range map[string]interface{}{"entry": entry, "public": entry.Public()} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: Marshal() error = %v", name, err)
		}
		if strings.Contains(string(data), "secret") {
			t.Errorf("%s: JSON contains upstream ref: %s", name, data)
		}
	}
}

// =============================================================================
// Resolution Tests
// =============================================================================

func TestCachedResolution_ValidAt(t *testing.T) {
	resolvedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := CachedResolution{UpstreamRef: "r", MediaURL: "https://cdn.test/r.mp4", ResolvedAt: resolvedAt}

	tests := []struct {
		name string
		now  time.Time
		ttl  time.Duration
		want bool
	}{
		{"fresh", resolvedAt, time.Hour, true},
		{"just before expiry", resolvedAt.Add(time.Hour - time.Nanosecond), time.Hour, true},
		{"exactly at expiry", resolvedAt.Add(time.Hour), time.Hour, false},
		{"after expiry", resolvedAt.Add(2 * time.Hour), time.Hour, false},
		{"zero ttl", resolvedAt, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.ValidAt(tt.now, tt.ttl); got != tt.want {
				t.Errorf("ValidAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestResolutionError(t *testing.T) {
	pageErr := fmt.Errorf("%w: %w", ErrPageFetchFailed, &UpstreamStatusError{StatusCode: http.StatusForbidden})
	err := NewResolutionError("ref1", pageErr, []Attempt{{Index: 0, Strategy: "sources_list"}})

	if !errors.Is(err, ErrResolutionFailed) {
		t.Error("should match ErrResolutionFailed")
	}
	if !errors.Is(err, ErrPageFetchFailed) {
		t.Error("should match its reason")
	}
	var statusErr *UpstreamStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("errors.As(UpstreamStatusError) = %v", statusErr)
	}
	if !strings.Contains(err.Error(), "ref1") {
		t.Errorf("Error() = %q, should name the reference", err.Error())
	}
	if len(err.Attempts) != 1 {
		t.Errorf("Attempts = %d, want 1", len(err.Attempts))
	}
}

func TestResolutionError_NilReason(t *testing.T) {
	err := NewResolutionError("ref1", nil, nil)

	if !errors.Is(err, ErrResolutionFailed) {
		t.Error("should match ErrResolutionFailed")
	}
	if errors.Is(err, ErrCatalogMiss) {
		t.Error("should not match ErrCatalogMiss")
	}
	if err.Error() != "resolve [ref1]: "+ErrResolutionFailed.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUpstreamStatusError(t *testing.T) {
	err := &UpstreamStatusError{StatusCode: http.StatusNotFound}

	if !errors.Is(err, ErrUpstreamFetchFailed) {
		t.Error("should match ErrUpstreamFetchFailed")
	}
	if err.Error() != "upstream status 404 Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := fmt.Errorf("open media: %w", err)
	var target *UpstreamStatusError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find UpstreamStatusError")
	}
	if target.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", target.StatusCode, http.StatusNotFound)
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	errs := []error{
		ErrCatalogMiss,
		ErrResolutionFailed,
		ErrPageFetchFailed,
		ErrNoStrategyMatched,
		ErrUpstreamFetchFailed,
		ErrStreamAborted,
		ErrUpstreamStalled,
	}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
