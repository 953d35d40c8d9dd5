package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kubeschema/kubeschema/internal/config"
	"github.com/kubeschema/kubeschema/internal/logger"
)

// entry is one memoized catalog listing.
type entry struct {
	paths   []string
	pathSet map[string]struct{}
}

// Cache memoizes catalog listings for the process lifetime. Listings are
// populated lazily; concurrent first lookups for the same catalog issue at
// most one remote call. Failed listings are never cached, so the next lookup
// retries.
type Cache struct {
	lister Lister

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
}

// NewCache creates a cache around the given lister.
func NewCache(lister Lister) *Cache {
	return &Cache{
		lister:  lister,
		entries: make(map[string]*entry),
	}
}

// Entries returns the catalog's schema file paths, listing the catalog
// remotely on first use.
func (c *Cache) Entries(ctx context.Context, ref config.CatalogRef) ([]string, error) {
	e, err := c.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.paths, nil
}

// Contains reports whether the catalog lists the given repository-relative
// path.
func (c *Cache) Contains(ctx context.Context, ref config.CatalogRef, path string) (bool, error) {
	e, err := c.lookup(ctx, ref)
	if err != nil {
		return false, err
	}
	_, ok := e.pathSet[path]
	return ok, nil
}

// Invalidate drops every cached listing. There is deliberately no
// per-catalog invalidation: catalog churn is rare and a full reload is cheap
// relative to interactive use.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	logger.Debug("Catalog cache invalidated")
}

func (c *Cache) lookup(ctx context.Context, ref config.CatalogRef) (*entry, error) {
	key := ref.Key()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the singleflight leader; a previous leader may
		// have populated the entry already.
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e, nil
		}

		paths, err := c.lister.List(ctx, ref)
		if err != nil {
			return nil, err
		}

		e = &entry{
			paths:   paths,
			pathSet: make(map[string]struct{}, len(paths)),
		}
		for _, p := range paths {
			e.pathSet[p] = struct{}{}
		}

		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()

		logger.Debugf("Cached %d entries for catalog %s", len(paths), key)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}
