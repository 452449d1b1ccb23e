package news

import (
	"context"
	"sync"
	"time"

	"trading_journal/models"
)

// Cache per-symbol digest cache, shared by concurrent requests.
type Cache interface {
	Get(key string) ([]models.NewsItem, bool)
	Set(key string, items []models.NewsItem)
	Sweep() int
}

// SharedCache cross-process tier, typically Redis; errors are treated as misses.
type SharedCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheEntry struct {
	items     []models.NewsItem
	timestamp time.Time
}

// MemoryCache TTL map guarded by a RWMutex.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (c *MemoryCache) Get(key string) ([]models.NewsItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.now().Sub(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.items, true
}

func (c *MemoryCache) Set(key string, items []models.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = &cacheEntry{items: items, timestamp: c.now()}
}

// Sweep removes expired entries.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}
