package quote

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"
)

// expiryKey orders cache entries by expiration time, then key, so Min()
// returns the entry that expires first.
type expiryKey struct {
	at  time.Time
	key string
}

func expiryLess(a, b expiryKey) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.key < b.key
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache with a size bound. Entries are indexed by
// expiration in a B-tree, so purging expired entries and evicting the
// soonest-expiring one when full are both O(log n) per entry.
type Cache[V any] struct {
	ttl     time.Duration
	maxSize int
	clock   Clock

	mu      sync.Mutex
	entries map[string]cacheEntry[V]
	expiry  *btree.BTreeG[expiryKey]
}

// NewCache creates a cache whose entries live for ttl. A maxSize of zero
// or less means unbounded.
func NewCache[V any](ttl time.Duration, maxSize int, clock Clock) *Cache[V] {
	const degree = 16
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache[V]{
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clock,
		entries: make(map[string]cacheEntry[V]),
		expiry:  btree.NewG[expiryKey](degree, expiryLess),
	}
}

// Get returns the live value stored under key. An expired entry is
// removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeLocked(key, e)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for one TTL, replacing any previous entry.
// When the cache is full, expired entries are purged first and then the
// entry closest to expiry is evicted.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.purgeLocked(now)
		for len(c.entries) >= c.maxSize {
			oldest, ok := c.expiry.Min()
			if !ok {
				break
			}
			c.removeLocked(oldest.key, c.entries[oldest.key])
		}
	}

	e := cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
	c.entries[key] = e
	c.expiry.ReplaceOrInsert(expiryKey{at: e.expiresAt, key: key})
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// Purge removes every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.clock.Now())
}

// Len returns the number of stored entries, expired ones included until
// they are purged or read.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartSweeper launches a background goroutine that purges expired
// entries every interval. It stops when ctx is cancelled.
func (c *Cache[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Purge()
			}
		}
	}()
}

func (c *Cache[V]) purgeLocked(now time.Time) int {
	var expired []expiryKey
	c.expiry.Ascend(func(k expiryKey) bool {
		if k.at.After(now) {
			return false
		}
		expired = append(expired, k)
		return true
	})
	for _, k := range expired {
		c.expiry.Delete(k)
		delete(c.entries, k.key)
	}
	return len(expired)
}

func (c *Cache[V]) removeLocked(key string, e cacheEntry[V]) {
	c.expiry.Delete(expiryKey{at: e.expiresAt, key: key})
	delete(c.entries, key)
}
