package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxSize:         100,
		DefaultTTL:      time.Minute,
		MaxItemSize:     1024 * 1024,
		CleanupInterval: time.Hour, // no background cleanup during tests
	}
}

func TestCache_BasicOperations(t *testing.T) {
	c := New(testConfig())
	defer c.Close()

	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		err := c.Set(ctx, "key1", []byte("value1"), 0)
		require.NoError(t, err)

		val, err := c.Get(ctx, "key1")
		require.NoError(t, err)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("miss returns nil nil", func(t *testing.T) {
		val, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "key2", []byte("old"), 0))
		require.NoError(t, c.Set(ctx, "key2", []byte("new"), 0))

		val, err := c.Get(ctx, "key2")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), val)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})
}

func TestCache_TTLExpiration(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTTL = 50 * time.Millisecond
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()

	t.Run("entry visible before TTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", []byte("v"), 0))

		val, err := c.Get(ctx, "short")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("entry gone after TTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short2", []byte("v"), 20*time.Millisecond))
		time.Sleep(40 * time.Millisecond)

		val, err := c.Get(ctx, "short2")
		require.NoError(t, err)
		assert.Nil(t, val, "expired entry must read as a miss")
	})

	t.Run("explicit TTL overrides default", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "long", []byte("v"), time.Hour))
		time.Sleep(60 * time.Millisecond)

		val, err := c.Get(ctx, "long")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
	})
}

func TestCache_LRUEviction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSize = 3
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
	}

	// Touch k0 so k1 becomes the least recently used entry.
	_, err := c.Get(ctx, "k0")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k3", []byte("v"), 0))

	assert.Equal(t, 3, c.Len(), "size bound must hold after insert at capacity")

	val, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, val, "least recently used entry is the one evicted")

	for _, key := range []string{"k0", "k2", "k3"} {
		val, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, val, "key %s should survive eviction", key)
	}
}

func TestCache_SizeBoundUnderLoad(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSize = 10
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), 0))
		assert.LessOrEqual(t, c.Len(), 10)
	}
}

func TestCache_MaxItemSize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxItemSize = 8
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "big", make([]byte, 64), 0))

	val, err := c.Get(ctx, "big")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestCache_Stats(t *testing.T) {
	c := New(testConfig())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))

	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.Size)
}

func TestCache_Flush(t *testing.T) {
	c := New(testConfig())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSize = 50
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d", (g*100+i)%75)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50, "size bound must hold under concurrency")
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New(testConfig())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestCache_BackgroundCleanup(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = 20 * time.Millisecond
	c := New(cfg)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 10*time.Millisecond))

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
