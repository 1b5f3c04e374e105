// Package cache implements the in-memory answer cache keyed by client
// identity and normalized question text.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmarinova/cvgate/pkg/models"
)

type key struct {
	identity string
	question string
}

type entry struct {
	answer    string
	createdAt time.Time
}

// AnswerCache maps (identity, normalized question) to a produced answer
// with a TTL. Staleness is checked lazily on Get; stale entries stay in
// memory until overwritten or removed by Sweep.
type AnswerCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[key]entry
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates an AnswerCache with the given TTL.
func New(ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		ttl:     ttl,
		entries: make(map[key]entry),
	}
}

// NormalizeQuestion produces the cache key form of a question: surrounding
// whitespace trimmed, then case-folded. Identity is always used verbatim.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Get returns the cached answer for (identity, question) if one exists
// and is still fresh at now.
func (c *AnswerCache) Get(identity, question string, now time.Time) (string, bool) {
	k := key{identity: identity, question: NormalizeQuestion(question)}

	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()

	if !ok || now.Sub(e.createdAt) >= c.ttl {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return e.answer, true
}

// Put stores an answer for (identity, question) timestamped at now,
// overwriting any previous entry for the same key.
func (c *AnswerCache) Put(identity, question, answer string, now time.Time) {
	k := key{identity: identity, question: NormalizeQuestion(question)}

	c.mu.Lock()
	c.entries[k] = entry{answer: answer, createdAt: now}
	c.mu.Unlock()
}

// Sweep removes entries that are stale at now and returns how many were
// removed. Sweeping never changes what Get observes: stale entries were
// already treated as absent.
func (c *AnswerCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, fresh or stale.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance metrics.
func (c *AnswerCache) Stats() models.CacheStats {
	return models.CacheStats{
		Entries: int64(c.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
