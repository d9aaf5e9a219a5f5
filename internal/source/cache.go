package source

import (
	"context"
	"sync"
	"time"

	"proxy-metrics-panel/internal/panel"
)

// Cache stores encoded snapshot bodies keyed by proxy id and timeframe.
// Lookups never fail: an unreachable backend reads as a miss.
type Cache interface {
	Get(ctx context.Context, proxyID string, tf panel.Timeframe) ([]byte, bool)
	Set(ctx context.Context, proxyID string, tf panel.Timeframe, body []byte)
	// Invalidate drops every timeframe of proxyID.
	Invalidate(ctx context.Context, proxyID string)
	Close() error
}

// sweepAbove is the entry count past which Set drops expired entries.
const sweepAbove = 1024

type cachedSnapshot struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCache keeps snapshots in process for a fixed TTL.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]*cachedSnapshot
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]*cachedSnapshot),
	}
}

func cacheKey(proxyID string, tf panel.Timeframe) string {
	return proxyID + "|" + string(tf)
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, proxyID string, tf panel.Timeframe) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(proxyID, tf)]
	if !ok || !time.Now().Before(e.expiresAt) {
		return nil, false
	}
	return e.body, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, proxyID string, tf panel.Timeframe, body []byte) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= sweepAbove {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[cacheKey(proxyID, tf)] = &cachedSnapshot{body: body, expiresAt: now.Add(c.ttl)}
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(_ context.Context, proxyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range panel.TimeframeOptions() {
		delete(c.entries, cacheKey(proxyID, o.Value))
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close implements Cache.
func (c *MemoryCache) Close() error { return nil }
