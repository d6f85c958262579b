// Package catalog holds the immutable set of playable entries and the
// loaders that build it at startup.
package catalog

import (
	"fmt"
	"sort"

	"github.com/iconidentify/streamvault/internal/domain"
)

// Catalog is a read-only id -> entry mapping. It is safe for concurrent use
// because nothing mutates it after New returns.
type Catalog struct {
	entries map[string]domain.CatalogEntry
	ids     []string
}

// New builds a catalog, rejecting entries without an id or upstream
// reference and duplicate ids.
func New(entries []domain.CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]domain.CatalogEntry, len(entries)),
		ids:     make([]string, 0, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		if e.UpstreamRef == "" {
			return nil, fmt.Errorf("entry %q: missing upstream reference", e.ID)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("entry %q: duplicate id", e.ID)
		}
		c.entries[e.ID] = e
		c.ids = append(c.ids, e.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// Lookup returns the entry for a client-facing id.
func (c *Catalog) Lookup(id string) (domain.CatalogEntry, error) {
	e, ok := c.entries[id]
	if !ok {
		return domain.CatalogEntry{}, domain.ErrCatalogMiss
	}
	return e, nil
}

// Public returns the sanitized view keyed by id.
func (c *Catalog) Public() map[string]domain.PublicEntry {
	out := make(map[string]domain.PublicEntry, len(c.entries))
	for id, e := range c.entries {
		out[id] = e.Public()
	}
	return out
}

// IDs returns the catalog ids in sorted order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
