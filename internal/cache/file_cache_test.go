package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_SetAndGet(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("key", map[string]int{"answer": 42}, time.Minute))

	var got map[string]int
	require.NoError(t, c.Get("key", &got))
	assert.Equal(t, 42, got["answer"])
}

func TestFileCache_MissOnUnknownKey(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	var got string
	assert.ErrorIs(t, c.Get("missing", &got), ErrCacheMiss)
}

func TestFileCache_ExpiredEntryServedByGetStale(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("key", "value", time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	var got string
	assert.ErrorIs(t, c.Get("key", &got), ErrCacheMiss)

	age, err := c.GetStale("key", &got)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Greater(t, age, time.Duration(0))
}

func TestFileCache_ExpireKeepsData(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("key", "value", time.Hour))
	require.NoError(t, c.Expire("key"))

	var got string
	assert.ErrorIs(t, c.Get("key", &got), ErrCacheMiss)

	_, err = c.GetStale("key", &got)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestFileCache_ExpireUnknownKeyIsNoop(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, c.Expire("missing"))
}

func TestFileCache_ZeroTTLNeverExpires(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("key", true, 0))

	var got bool
	require.NoError(t, c.Get("key", &got))
	assert.True(t, got)
}

func TestFileCache_Delete(t *testing.T) {
	c, err := NewFileCacheWithDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("key", "value", time.Minute))
	require.NoError(t, c.Delete("key"))

	var got string
	assert.ErrorIs(t, c.Get("key", &got), ErrCacheMiss)
	_, err = c.GetStale("key", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheKeyBuilder(t *testing.T) {
	kb := NewCacheKeyBuilder("github")

	assert.Equal(t, "github:prs:authored:octocat", kb.PRListKey("authored", "octocat"))
	assert.Equal(t, "github:merge_method:acme:widgets", kb.MergeMethodKey("acme", "widgets"))
	assert.Equal(t, "github:merge_queue:acme:widgets:main", kb.MergeQueueKey("acme", "widgets", "main"))
}
