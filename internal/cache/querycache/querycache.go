// Package querycache is an in-process LRU of neighbourhood query results.
package querycache

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/digipin/internal/cache"
	"github.com/mohammed-shakir/digipin/internal/core/observability"
)

const defaultSize = 4096

type Cache struct {
	lru *lru.Cache[string, []string]
}

var _ cache.Results = (*Cache)(nil)

// New returns a cache holding up to size entries, or nil when size < 0.
// A nil *Cache is valid and never hits.
func New(size int) *Cache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = defaultSize
	}
	c, _ := lru.New[string, []string](size)
	return &Cache{lru: c}
}

// Get returns a copy of the cached codes.
func (c *Cache) Get(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(v), true
}

func (c *Cache) Add(key string, codes []string) {
	if c == nil {
		return
	}
	c.lru.Add(key, slices.Clone(codes))
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Do returns the cached value for key, computing and storing it on a miss.
// Errors are not cached.
func (c *Cache) Do(op, key string, fn func() ([]string, error)) ([]string, error) {
	if v, ok := c.Get(key); ok {
		observability.IncQueryCacheHit(op)
		return v, nil
	}
	observability.IncQueryCacheMiss(op)
	v, err := fn()
	if err != nil {
		return nil, err
	}
	c.Add(key, v)
	return v, nil
}
