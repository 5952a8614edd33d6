package cache

import (
	"sync"
	"time"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = 5 * time.Minute

// Entry represents a cached item with expiration
type Entry[V any] struct {
	Value      V
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.After(e.Expiration)
}

// Memory is an in-memory cache whose entries expire after a fixed TTL
type Memory[K comparable, V any] struct {
	items map[K]*Entry[V]
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates a cache and starts its cleanup goroutine. A cleanup
// interval of zero disables sweeping; expired entries are still never
// returned. Call Close to stop the sweeper.
func NewMemory[K comparable, V any](ttl, cleanupInterval time.Duration) *Memory[K, V] {
	c := &Memory[K, V]{
		items: make(map[K]*Entry[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.cleanupExpired(cleanupInterval)
	}

	return c
}

// Set stores a value in the cache
func (c *Memory[K, V]) Set(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &Entry[V]{
		Value:      value,
		Expiration: c.now().Add(c.ttl),
	}
}

// Get retrieves a live value from the cache
func (c *Memory[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired(c.now()) {
		var zero V
		return zero, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *Memory[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Memory[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[K]*Entry[V])
}

// Size returns the number of stored items, expired or not
func (c *Memory[K, V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine
func (c *Memory[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

// sweep removes expired entries
func (c *Memory[K, V]) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.items {
		if entry.IsExpired(now) {
			delete(c.items, key)
		}
	}
}

// cleanupExpired removes expired entries periodically
func (c *Memory[K, V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}
