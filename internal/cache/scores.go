package cache

import (
	"sync"
	"time"
)

// ScoreCache memoizes per-site popularity scores for a limited time
// Safe for concurrent use.
type ScoreCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]scoreEntry
	now     func() time.Time
}

type scoreEntry struct {
	score   float64
	expires time.Time
}

// NewScoreCache creates a cache whose entries live for ttl
// A non-positive ttl disables caching.
func NewScoreCache(ttl time.Duration) *ScoreCache {
	return &ScoreCache{
		ttl:     ttl,
		entries: make(map[string]scoreEntry),
		now:     time.Now,
	}
}

// Get returns the cached score of a site
func (c *ScoreCache) Get(siteID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[siteID]
	if !ok {
		return 0, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, siteID)
		return 0, false
	}
	return e.score, true
}

// SetMany caches several scores with a single expiry
func (c *ScoreCache) SetMany(scores map[string]float64) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	for id, score := range scores {
		c.entries[id] = scoreEntry{score: score, expires: expires}
	}
}

// Invalidate drops every cached score
func (c *ScoreCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]scoreEntry)
}
