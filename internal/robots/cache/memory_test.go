package cache_test

import (
	"testing"

	"github.com/rohmanhakim/polite-crawler/internal/robots/cache"
	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_PutGet(t *testing.T) {
	c := cache.NewMemoryCache()

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Put("https://example.com/robots.txt", "payload")
	value, found := c.Get("https://example.com/robots.txt")
	assert.True(t, found)
	assert.Equal(t, "payload", value)
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := cache.NewMemoryCache()

	c.Put("key", "first")
	c.Put("key", "second")

	value, found := c.Get("key")
	assert.True(t, found)
	assert.Equal(t, "second", value)
}

func TestMemoryCache_ClearAndSize(t *testing.T) {
	c := cache.NewMemoryCache()

	c.Put("a", "1")
	c.Put("b", "2")
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())

	_, found := c.Get("a")
	assert.False(t, found)
}
