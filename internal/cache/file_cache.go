package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache implements Cache interface using the filesystem
type FileCache struct {
	baseDir string
}

// NewFileCache creates a new file-based cache in the OS cache directory
func NewFileCache(appName string) (*FileCache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user cache directory: %w", err)
	}

	baseDir := filepath.Join(cacheDir, appName)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", baseDir, err)
	}

	return &FileCache{baseDir: baseDir}, nil
}

// NewFileCacheWithDir creates a new file-based cache in a specific directory
func NewFileCacheWithDir(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	return &FileCache{baseDir: dir}, nil
}

// Get retrieves a fresh value from the cache. Expired entries report a
// miss but are kept on disk so GetStale can still serve them.
func (c *FileCache) Get(key string, value interface{}) error {
	entry, err := c.readEntry(key)
	if err != nil {
		return err
	}

	if entry.IsExpired() {
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return nil
}

// GetStale retrieves a value regardless of expiry, returning its age
func (c *FileCache) GetStale(key string, value interface{}) (time.Duration, error) {
	entry, err := c.readEntry(key)
	if err != nil {
		return 0, err
	}

	if err := json.Unmarshal(entry.Data, value); err != nil {
		return 0, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return entry.Age(), nil
}

// Set stores a value in the cache with an optional TTL
func (c *FileCache) Set(key string, value interface{}, ttl time.Duration) error {
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

	return c.writeEntry(key, entry)
}

// Expire marks an entry stale while keeping its data for fallback reads
func (c *FileCache) Expire(key string) error {
	entry, err := c.readEntry(key)
	if err != nil {
		if err == ErrCacheMiss {
			return nil
		}
		return err
	}

	past := time.Now().Add(-time.Nanosecond)
	entry.ExpiresAt = &past
	return c.writeEntry(key, *entry)
}

// Delete removes a value from the cache
func (c *FileCache) Delete(key string) error {
	filename := c.keyToFilename(key)
	err := os.Remove(filename)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Close cleans up the cache resources (no-op for file cache)
func (c *FileCache) Close() error {
	return nil
}

func (c *FileCache) readEntry(key string) (*Entry, error) {
	filename := c.keyToFilename(key)

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

func (c *FileCache) writeEntry(key string, entry Entry) error {
	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	filename := c.keyToFilename(key)

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}

	if err := os.WriteFile(filename, entryData, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// keyToFilename converts a cache key to a safe filename
func (c *FileCache) keyToFilename(key string) string {
	// Hash the key to ensure it's filesystem-safe and not too long
	hash := sha256.Sum256([]byte(key))
	hashStr := hex.EncodeToString(hash[:])

	// Use first two characters for subdirectory to avoid too many files in one dir
	subdir := hashStr[:2]
	filename := hashStr[2:] + ".json"

	return filepath.Join(c.baseDir, subdir, filename)
}
