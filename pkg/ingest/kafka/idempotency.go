package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &versionDedupe{lru: c}
}

// returns true if v is greater than the last version seen for id
func (d *versionDedupe) shouldApply(id string, v int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(id); ok {
		if v <= last {
			return false
		}
	}
	d.lru.Add(id, v)
	return true
}

// forget drops id so a failed apply can be retried with the same version.
func (d *versionDedupe) forget(id string, v int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Peek(id); ok && last == v {
		d.lru.Remove(id)
	}
}
