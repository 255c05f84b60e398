package secrets

import (
	"sync"
	"time"
)

// ReplayCache remembers client assertions until they expire so a captured
// assertion cannot authenticate twice. Insert-if-absent keyed by the raw
// token value.
type ReplayCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewReplayCache() *ReplayCache {
	return &ReplayCache{seen: make(map[string]time.Time)}
}

// Add records the token and returns true if it was not already present.
// A false return means replay: the same assertion was seen inside its
// validity window.
func (c *ReplayCache) Add(token string, expiry time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for t, exp := range c.seen {
		if exp.Before(now) {
			delete(c.seen, t)
		}
	}

	if _, ok := c.seen[token]; ok {
		return false
	}
	c.seen[token] = expiry
	return true
}

// Len reports the number of live entries, for tests and readiness checks.
func (c *ReplayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
