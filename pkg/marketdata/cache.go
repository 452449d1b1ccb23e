package marketdata

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"trading_journal/models"
)

// SharedCache cross-process cache tier (Redis in production).
type SharedCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type localEntry struct {
	candles   []models.Candle
	expiresAt time.Time
}

// LocalCache in-process tier with per-entry expiry.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time
}

func NewLocalCache() *LocalCache {
	return &LocalCache{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

func (c *LocalCache) Get(key string) ([]models.Candle, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.candles, true
}

func (c *LocalCache) Set(key string, candles []models.Candle, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = localEntry{candles: candles, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Sweep drops expired entries and returns how many were removed.
func (c *LocalCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *LocalCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]localEntry)
	return n
}

func (c *LocalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey "aggs:<timespan>:" followed by the sorted query parameters.
func CacheKey(timespan string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return "aggs:" + timespan + ":" + strings.Join(parts, "&")
}
