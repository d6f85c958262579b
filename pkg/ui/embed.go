// Package ui provides the embedded single-page player.
//
// The page lists the catalog from /api/videos and plays an entry either
// through /embed/{id} or directly from /stream?id=.
package ui

import (
	_ "embed"
)

// IndexHTML is the catalog browser and player.
//
//go:embed index.html
var IndexHTML []byte
