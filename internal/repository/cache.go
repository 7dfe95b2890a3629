// Package repository defines data access interfaces for the Meridian back office.
package repository

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching operations.
// Implemented in-memory for single-node deployments and with Redis for
// distributed ones. The vehicle service uses it as a read-through cache on
// GetByID, invalidated on every status write.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)
}
