package prompts

import (
	"sync"
	"time"
)

// activeCache remembers each stage's active override (or its absence) for
// ttl. Segmentation asks once per window, so without it a long agenda
// costs one query per window. Writes in this process clear it; writes in
// other processes are seen once entries expire.
type activeCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[Stage]cacheEntry
}

type cacheEntry struct {
	prompt  *Prompt
	expires time.Time
}

func newActiveCache(ttl time.Duration) *activeCache {
	return &activeCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Stage]cacheEntry),
	}
}

func (c *activeCache) get(stage Stage) (*Prompt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[stage]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.prompt, true
}

func (c *activeCache) put(stage Stage, p *Prompt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[stage] = cacheEntry{prompt: p, expires: c.now().Add(c.ttl)}
}

func (c *activeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
