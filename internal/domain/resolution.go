package domain

import "time"

// CachedResolution is a resolved media URL for one upstream reference.
// Entries are replaced wholesale, never mutated in place.
type CachedResolution struct {
	UpstreamRef string
	MediaURL    string
	ResolvedAt  time.Time
}

// ValidAt reports whether the entry is still usable at now for the given TTL.
// The comparison is strict, so a zero TTL never yields a valid entry.
func (c CachedResolution) ValidAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.ResolvedAt) < ttl
}

// Attempt records the outcome of one extraction strategy. Diagnostics only.
type Attempt struct {
	Index    int
	Strategy string
	Matched  bool
}
