package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New(4)

	c.Set("$.a", Result{Value: "x", Found: true})
	r, ok := c.Get("$.a")
	require.True(t, ok)
	assert.Equal(t, "x", r.Value)
	assert.True(t, r.Found)

	_, ok = c.Get("$.missing")
	assert.False(t, ok)
}

func TestCacheStoresAbsentResults(t *testing.T) {
	c := New(4)
	c.Set("$.gone", Result{})
	r, ok := c.Get("$.gone")
	require.True(t, ok)
	assert.False(t, r.Found)
	assert.Nil(t, r.Value)
}

func TestCacheReplace(t *testing.T) {
	c := New(4)
	c.Set("$.a", Result{Value: 1, Found: true})
	c.Set("$.a", Result{Value: 2, Found: true})

	assert.Equal(t, 1, c.Len())
	r, _ := c.Get("$.a")
	assert.Equal(t, 2, r.Value)
}

func TestCacheEviction(t *testing.T) {
	c := New(2)
	c.Set("a", Result{Value: 1, Found: true})
	c.Set("b", Result{Value: 2, Found: true})
	c.Set("c", Result{Value: 3, Found: true})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCacheGetPromotes(t *testing.T) {
	c := New(2)
	c.Set("a", Result{Value: 1, Found: true})
	c.Set("b", Result{Value: 2, Found: true})

	// Touching "a" makes "b" the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", Result{Value: 3, Found: true})
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := New(4)
	c.Set("a", Result{Value: 1, Found: true})
	c.Set("b", Result{Value: 2, Found: true})

	c.Invalidate("a")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	// Invalidating an unknown key is a no-op.
	c.Invalidate("zzz")
	assert.Equal(t, 1, c.Len())
}

func TestCacheClear(t *testing.T) {
	c := New(4)
	c.Set("a", Result{Value: 1, Found: true})
	c.Set("b", Result{Value: 2, Found: true})

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Set("a", Result{Value: 3, Found: true})
	r, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, r.Value)
}

func TestCacheDefaultCapacity(t *testing.T) {
	assert.Equal(t, 256, New(0).Capacity())
	assert.Equal(t, 256, New(-5).Capacity())
	assert.Equal(t, 16, New(16).Capacity())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%32)
				c.Set(key, Result{Value: i, Found: true})
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
