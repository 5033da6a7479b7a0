// Package cache provides in-process caching for fetched pages.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// PageCache provides thread-safe LRU caching of pages keyed by page number.
// Entries only live as long as the owning process.
type PageCache[V any] struct {
	cache *lru.Cache[int, V]
}

// NewPageCache creates a new LRU cache holding at most maxPages pages.
func NewPageCache[V any](maxPages int) (*PageCache[V], error) {
	c, err := lru.New[int, V](maxPages)
	if err != nil {
		return nil, err
	}
	return &PageCache[V]{cache: c}, nil
}

// Get retrieves a page from the cache by its number.
// Returns the page and true if found, the zero value and false otherwise.
func (c *PageCache[V]) Get(page int) (V, bool) {
	return c.cache.Get(page)
}

// Put adds or updates a page in the cache.
func (c *PageCache[V]) Put(page int, v V) {
	c.cache.Add(page, v)
}

// Purge drops every cached page.
func (c *PageCache[V]) Purge() {
	c.cache.Purge()
}

// Len returns the current number of pages in the cache.
func (c *PageCache[V]) Len() int {
	return c.cache.Len()
}
