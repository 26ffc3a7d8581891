package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fshasan/feedback-pulse/internal/models"
)

// MemoryCache is the in-process fallback used when no cache server is configured.
// Analyses expire after ttl (never when ttl <= 0) and seen IDs after seenTTL, matching
// ValkeyCache. Expired entries are swept on write at most once per expiry window.
type MemoryCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	analyses  map[string]cachedAnalysis
	seen      map[string]map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

type cachedAnalysis struct {
	analysis models.Analysis
	expires  time.Time // zero means never
}

var (
	_ AnalysisCache = (*MemoryCache)(nil)
	_ SeenSet       = (*MemoryCache)(nil)
)

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:       ttl,
		analyses:  make(map[string]cachedAnalysis),
		seen:      make(map[string]map[string]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (c *MemoryCache) GetAnalysis(_ context.Context, key string) (*models.Analysis, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.analyses[key]
	if !ok || expired(entry.expires, c.now()) {
		return nil, false, nil
	}
	analysis := entry.analysis
	analysis.Themes = append([]string(nil), analysis.Themes...)
	return &analysis, true, nil
}

func (c *MemoryCache) SetAnalysis(_ context.Context, key string, analysis models.Analysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	entry := cachedAnalysis{analysis: analysis}
	entry.analysis.Themes = append([]string(nil), analysis.Themes...)
	if c.ttl > 0 {
		entry.expires = now.Add(c.ttl)
	}
	c.analyses[key] = entry
	return nil
}

func (c *MemoryCache) IsSeen(_ context.Context, source, id string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expires, ok := c.seen[source][id]
	return ok && !expired(expires, c.now()), nil
}

func (c *MemoryCache) MarkSeen(_ context.Context, source, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	if c.seen[source] == nil {
		c.seen[source] = make(map[string]time.Time)
	}
	c.seen[source][id] = now.Add(seenTTL)
	return nil
}

// Len reports how many analyses are held, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.analyses)
}

// caller holds c.mu
func (c *MemoryCache) sweep(now time.Time) {
	window := seenTTL
	if c.ttl > 0 && c.ttl < window {
		window = c.ttl
	}
	if now.Sub(c.lastSweep) < window {
		return
	}
	c.lastSweep = now

	for key, entry := range c.analyses {
		if expired(entry.expires, now) {
			delete(c.analyses, key)
		}
	}
	for source, ids := range c.seen {
		for id, expires := range ids {
			if expired(expires, now) {
				delete(ids, id)
			}
		}
		if len(ids) == 0 {
			delete(c.seen, source)
		}
	}
}

func expired(expires, now time.Time) bool {
	return !expires.IsZero() && !now.Before(expires)
}
