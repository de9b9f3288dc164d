package quiz

import (
	"context"
	"sync"
	"time"
)

// PoolCache holds recently fetched question pools so repeated session
// starts don't re-scan the questions table. Implementations must be safe
// for concurrent use; misses are reported, never errors, so a dead cache
// degrades to direct fetches.
type PoolCache interface {
	GetPool(ctx context.Context, key string) ([]Question, bool)
	SetPool(ctx context.Context, key string, qs []Question)
}

// memoryPoolCache is the in-process fallback used when no Redis is
// configured.
type memoryPoolCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]poolEntry
}

type poolEntry struct {
	qs      []Question
	expires time.Time
}

func NewMemoryPoolCache(ttl time.Duration) PoolCache {
	return &memoryPoolCache{ttl: ttl, m: map[string]poolEntry{}}
}

func (c *memoryPoolCache) GetPool(_ context.Context, key string) ([]Question, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.qs, true
}

func (c *memoryPoolCache) SetPool(_ context.Context, key string, qs []Question) {
	c.mu.Lock()
	c.m[key] = poolEntry{qs: qs, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
