package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("key", []string{"a", "b"}, time.Minute))

	var got []string
	require.NoError(t, c.Get("key", &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMemoryCache_ReadIsDecoupledFromOriginal(t *testing.T) {
	c := NewMemoryCache()

	value := []string{"a"}
	require.NoError(t, c.Set("key", value, time.Minute))
	value[0] = "mutated"

	var got []string
	require.NoError(t, c.Get("key", &got))
	assert.Equal(t, []string{"a"}, got)
}

func TestMemoryCache_ExpireKeepsDataForStaleReads(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("key", 7, time.Hour))
	require.NoError(t, c.Expire("key"))

	var got int
	assert.ErrorIs(t, c.Get("key", &got), ErrCacheMiss)

	age, err := c.GetStale("key", &got)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.GreaterOrEqual(t, age, time.Duration(0))
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("key", "value", 0))
	require.NoError(t, c.Delete("key"))

	var got string
	assert.ErrorIs(t, c.Get("key", &got), ErrCacheMiss)
	_, err := c.GetStale("key", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
