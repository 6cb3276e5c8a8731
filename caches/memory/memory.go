// Package memory provides a bounded in-memory cache with LRU + TTL
// eviction.
package memory

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sherin-SEF-AI/llm-router/pkg/cache"
)

// Cache is a bounded in-memory cache. Entries expire after their TTL and,
// at capacity, the least-recently-used entry is evicted before a new one is
// inserted. A reader never observes a partially written entry.
type Cache struct {
	mu sync.Mutex

	entries map[string]*list.Element
	lru     *list.List // front = most recently used

	maxSize     int
	defaultTTL  time.Duration
	maxItemSize int

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type entry struct {
	key        string
	value      []byte
	expiration int64 // unix nano
}

// Config holds configuration for the in-memory cache.
type Config struct {
	MaxSize         int           // maximum number of entries (default: 1000)
	DefaultTTL      time.Duration // default TTL (default: 1 hour)
	MaxItemSize     int           // maximum size per entry in bytes (default: 1MB)
	CleanupInterval time.Duration // expired-entry sweep interval (default: 1 minute)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:         1000,
		DefaultTTL:      time.Hour,
		MaxItemSize:     1024 * 1024,
		CleanupInterval: time.Minute,
	}
}

// New creates a new in-memory cache.
func New(cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.MaxItemSize <= 0 {
		cfg.MaxItemSize = 1024 * 1024
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	c := &Cache{
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		maxSize:     cfg.MaxSize,
		defaultTTL:  cfg.DefaultTTL,
		maxItemSize: cfg.MaxItemSize,
		stopCleanup: make(chan struct{}),
	}

	c.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
	go c.cleanupLoop()

	return c
}

func (c *Cache) cleanupLoop() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.evictExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.expiration > 0 && e.expiration <= now {
			c.removeElement(el)
		}
		el = prev
	}
}

// removeElement must be called with the lock held.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.lru.Remove(el)
	delete(c.entries, e.key)
}

// Get retrieves a value. Expired entries count as misses and are purged
// lazily; a hit moves the entry to the front of the LRU list.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, nil
	}

	e := el.Value.(*entry)
	if e.expiration > 0 && e.expiration <= time.Now().UnixNano() {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, nil
	}

	c.lru.MoveToFront(el)
	c.hits.Add(1)

	result := make([]byte, len(e.value))
	copy(result, e.value)
	return result, nil
}

// Set stores a value. At capacity the least-recently-used entry is evicted
// first so the cache never exceeds its configured size.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) > c.maxItemSize {
		return nil // silently skip oversized entries
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiration := time.Now().Add(ttl).UnixNano()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = valueCopy
		e.expiration = expiration
		c.lru.MoveToFront(el)
		c.sets.Add(1)
		return nil
	}

	for c.lru.Len() >= c.maxSize {
		if tail := c.lru.Back(); tail != nil {
			c.removeElement(tail)
		}
	}

	el := c.lru.PushFront(&entry{
		key:        key,
		value:      valueCopy,
		expiration: expiration,
	})
	c.entries[key] = el

	c.sets.Add(1)
	return nil
}

// Ping always returns nil for the memory cache.
func (c *Cache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.cleanupTicker.Stop()
		close(c.stopCleanup)
	})
	return nil
}

// Stats returns cache counters.
func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Size:   size,
	}
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Flush removes all entries.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}
