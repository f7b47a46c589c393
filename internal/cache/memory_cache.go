package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryCache implements Cache interface with an in-process map. Values
// go through the same JSON round-trip as FileCache so both behave
// identically: a cached read returns byte-identical data, decoupled
// from later mutations of the original value.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

// Get retrieves a fresh value; expired entries report ErrCacheMiss
func (c *MemoryCache) Get(key string, value interface{}) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if !ok || entry.IsExpired() {
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

// GetStale retrieves a value regardless of expiry, returning its age
func (c *MemoryCache) GetStale(key string, value interface{}) (time.Duration, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return 0, ErrCacheMiss
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return 0, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return entry.Age(), nil
}

// Set stores a value with an optional TTL (0 = no expiry)
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	entry := Entry{
		Data:      data,
		CreatedAt: time.Now(),
	}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Expire marks an entry stale while keeping its data
func (c *MemoryCache) Expire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	past := time.Now().Add(-time.Nanosecond)
	entry.ExpiresAt = &past
	c.entries[key] = entry
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Close cleans up the cache resources (no-op for memory cache)
func (c *MemoryCache) Close() error {
	return nil
}
