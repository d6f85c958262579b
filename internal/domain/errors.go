package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors.
var (
	// ErrCatalogMiss is returned when a client id is not in the catalog.
	ErrCatalogMiss = errors.New("video not found")

	// ErrResolutionFailed is returned when no strategy produced a media URL.
	ErrResolutionFailed = errors.New("could not resolve media URL")

	// ErrPageFetchFailed is returned when the upstream embed page cannot be fetched.
	ErrPageFetchFailed = errors.New("upstream page fetch failed")

	// ErrNoStrategyMatched is returned when the page was fetched but nothing matched.
	ErrNoStrategyMatched = errors.New("no extraction strategy matched")

	// ErrUpstreamFetchFailed is returned when the upstream media fetch fails.
	ErrUpstreamFetchFailed = errors.New("upstream media fetch failed")

	// ErrStreamAborted is returned when the client goes away mid-stream.
	ErrStreamAborted = errors.New("stream aborted by client")

	// ErrUpstreamStalled is returned when the upstream stops sending bytes.
	ErrUpstreamStalled = errors.New("upstream stalled")
)

// ResolutionError wraps a failed resolution with its diagnostic trail.
type ResolutionError struct {
	Ref      string
	Reason   error
	Attempts []Attempt
}

func (e *ResolutionError) Error() string {
	if e.Reason != nil {
		return "resolve [" + e.Ref + "]: " + ErrResolutionFailed.Error() + ": " + e.Reason.Error()
	}
	return "resolve [" + e.Ref + "]: " + ErrResolutionFailed.Error()
}

// Is lets errors.Is match both ErrResolutionFailed and the underlying reason.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolutionFailed
}

func (e *ResolutionError) Unwrap() error {
	return e.Reason
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(ref string, reason error, attempts []Attempt) *ResolutionError {
	return &ResolutionError{
		Ref:      ref,
		Reason:   reason,
		Attempts: attempts,
	}
}

// UpstreamStatusError carries a non-success status returned by the upstream.
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamFetchFailed
}
