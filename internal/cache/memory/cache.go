// Package memory implements an in-memory cache for single-node deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// Cache implements repository.Cache using an in-process map.
// Entries expire lazily on read and eagerly through a janitor goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// New creates a new in-memory cache.
func New() *Cache {
	c := &Cache{entries: make(map[string]entry)}
	go c.janitorLoop()
	return c
}

// janitorLoop periodically removes expired entries.
func (c *Cache) janitorLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, e := range c.entries {
			if e.expired(now) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, repository.ErrCacheMiss
	}

	// Copy so callers cannot mutate the cached bytes.
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

// Set stores a value with an optional TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes a value by key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Exists checks if a key exists.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	return ok && !e.expired(time.Now()), nil
}

// Ensure Cache implements repository.Cache.
var _ repository.Cache = (*Cache)(nil)
