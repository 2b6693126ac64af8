package paymentqr

import (
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 1024

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryCache is a process-local Cache. Expired entries are swept on every
// write, and the oldest entry is evicted when the cache is full.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memoryItem
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryCache{
		items:      make(map[string]memoryItem),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, k)
		}
	}
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = memoryItem{entry: entry, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, item := range c.items {
		if !found || item.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, item.expiresAt, true
		}
	}
	if found {
		delete(c.items, oldestKey)
	}
}
