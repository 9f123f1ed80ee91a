package entitlement

import (
	"context"
	"sync"
	"time"
)

// Cache stores computed entitlement results keyed by subject. Entries carry
// invalidation tags so a single billing or membership event can evict every
// affected subject without knowing their cache keys.
type Cache interface {
	// Get returns the cached result for key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*Result, error)
	// Set stores the result under key until expiresAt, indexed by tags.
	// Entries that are already expired are not stored.
	Set(ctx context.Context, key string, value Result, expiresAt time.Time, tags []string) error
	// Invalidate evicts every entry carrying at least one of the tags.
	Invalidate(ctx context.Context, tags ...string) error
}

type memoryCacheEntry struct {
	value     Result
	expiresAt time.Time
	tags      map[string]struct{}
}

// MemoryCache is an in-process Cache suitable for tests and local
// development. Expired entries are evicted lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !time.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	value := entry.value
	return &value, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value Result, expiresAt time.Time, tags []string) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{value: value, expiresAt: expiresAt, tags: tagSet}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		for _, tag := range tags {
			if _, ok := entry.tags[tag]; ok {
				delete(c.entries, key)
				break
			}
		}
	}
	return nil
}

// Clear drops every entry. Intended for tests.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryCacheEntry)
}
