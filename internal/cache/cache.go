package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common cache errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// Cache defines the interface for all cache implementations
type Cache interface {
	// Get retrieves a fresh value from the cache; expired entries
	// report ErrCacheMiss
	Get(key string, value interface{}) error

	// GetStale retrieves a value even if its TTL has lapsed, returning
	// the entry's age. Expired data is kept so callers can fall back to
	// stale results when a fresh fetch fails.
	GetStale(key string, value interface{}) (time.Duration, error)

	// Set stores a value in the cache with an optional TTL (0 = no expiry)
	Set(key string, value interface{}, ttl time.Duration) error

	// Expire marks an entry stale without discarding its data
	Expire(key string) error

	// Delete removes a value from the cache
	Delete(key string) error

	// Close cleans up the cache resources
	Close() error
}

// Entry represents a cached entry with metadata
type Entry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsExpired checks if the cache entry has expired
func (e *Entry) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

// Age returns how long ago the entry was written
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// CacheKeyBuilder helps build consistent cache keys
type CacheKeyBuilder struct {
	prefix string
}

func NewCacheKeyBuilder(prefix string) *CacheKeyBuilder {
	return &CacheKeyBuilder{prefix: prefix}
}

func (b *CacheKeyBuilder) PRListKey(kind, login string) string {
	return b.buildKey("prs", kind, login)
}

func (b *CacheKeyBuilder) MergeMethodKey(owner, repo string) string {
	return b.buildKey("merge_method", owner, repo)
}

func (b *CacheKeyBuilder) MergeQueueKey(owner, repo, branch string) string {
	return b.buildKey("merge_queue", owner, repo, branch)
}

func (b *CacheKeyBuilder) buildKey(parts ...interface{}) string {
	key := b.prefix
	for _, part := range parts {
		key += ":" + toString(part)
	}
	return key
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Factory function for creating default cache
func NewDefaultCache() (Cache, error) {
	return NewFileCache("github-review-manager")
}
