// Package cache provides a bounded in-memory fingerprint set with LRU
// eviction. The engine consults it before hitting the store so that a
// candidate seen earlier in the same run never costs a database round
// trip.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key       string
	expiresAt time.Time
}

// FingerprintCache is a TTL-bounded LRU set of business fingerprints.
// Safe for concurrent use.
type FingerprintCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lruList *list.List
	maxSize int
	ttl     time.Duration
}

// New creates a fingerprint cache holding at most maxSize entries, each
// valid for ttl. Non-positive arguments fall back to sane defaults.
func New(maxSize int, ttl time.Duration) *FingerprintCache {
	if maxSize <= 0 {
		maxSize = 10_000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FingerprintCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Contains reports whether the fingerprint is cached and still fresh.
// A hit refreshes the entry's LRU position but not its TTL.
func (c *FingerprintCache) Contains(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.store[fp]
	if !ok {
		return false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.lruList.Remove(el)
		delete(c.store, fp)
		return false
	}
	c.lruList.MoveToFront(el)
	return true
}

// Add records a fingerprint, evicting the least recently used entry
// when the cache is full.
func (c *FingerprintCache) Add(fp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.store[fp]; ok {
		el.Value.(*entry).expiresAt = time.Now().Add(c.ttl)
		c.lruList.MoveToFront(el)
		return
	}

	for c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.lruList.Remove(oldest)
		delete(c.store, oldest.Value.(*entry).key)
	}

	el := c.lruList.PushFront(&entry{key: fp, expiresAt: time.Now().Add(c.ttl)})
	c.store[fp] = el
}

// Len returns the number of cached fingerprints, including any that
// have expired but not yet been evicted.
func (c *FingerprintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Clear drops every cached fingerprint.
func (c *FingerprintCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*list.Element)
	c.lruList.Init()
}
