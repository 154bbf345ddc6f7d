package cache

import (
	"context"
	"testing"
	"time"

	"storynest/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, maxKeys int) Cache {
	t.Helper()
	c := NewMemoryCache(&config.CacheConfig{
		MaxKeys:         maxKeys,
		CleanupInterval: 10 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:home:7", []byte(`{"streak":3}`), time.Minute))

	value, found := c.Get(ctx, "summary:home:7")
	require.True(t, found)
	assert.Equal(t, []byte(`{"streak":3}`), value)

	_, found = c.Get(ctx, "summary:home:8")
	assert.False(t, found)
}

func TestMemoryCacheGetReturnsCopy(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("original"), time.Minute))

	value, found := c.Get(ctx, "key")
	require.True(t, found)
	value[0] = 'X'

	again, found := c.Get(ctx, "key")
	require.True(t, found)
	assert.Equal(t, []byte("original"), again, "callers must not mutate cached entries")
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 20*time.Millisecond))

	_, found := c.Get(ctx, "key")
	require.True(t, found)

	time.Sleep(40 * time.Millisecond)

	_, found = c.Get(ctx, "key")
	assert.False(t, found, "entries past their TTL are gone")
}

func TestMemoryCacheDelete(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))
	assert.False(t, c.Exists(ctx, "key"))

	// Deleting a missing key is not an error.
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:home:7", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "summary:badges:7", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "summary:home:8", []byte("c"), time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "summary:*:7"))

	assert.False(t, c.Exists(ctx, "summary:home:7"))
	assert.False(t, c.Exists(ctx, "summary:badges:7"))
	assert.True(t, c.Exists(ctx, "summary:home:8"))
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := newTestCache(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "first", []byte("1"), time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "second", []byte("2"), time.Minute))
	time.Sleep(time.Millisecond)

	// Touch "first" so "second" becomes the eviction candidate.
	_, found := c.Get(ctx, "first")
	require.True(t, found)
	time.Sleep(time.Millisecond)

	require.NoError(t, c.Set(ctx, "third", []byte("3"), time.Minute))

	assert.True(t, c.Exists(ctx, "first"))
	assert.False(t, c.Exists(ctx, "second"))
	assert.True(t, c.Exists(ctx, "third"))
}

func TestMemoryCacheStats(t *testing.T) {
	c := newTestCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Minute))
	c.Get(ctx, "key")
	c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Keys)
	assert.InDelta(t, 0.5, stats.HitRatio, 0.001)
}

func TestMemoryCacheHealth(t *testing.T) {
	c := newTestCache(t, 100)
	assert.NoError(t, c.Health(context.Background()))
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := newTestCache(t, 100)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewCacheProviderSelection(t *testing.T) {
	c, err := NewCache(&config.CacheConfig{Provider: "memory", MaxKeys: 10}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	_ = c.Close()

	_, err = NewCache(&config.CacheConfig{Provider: "memcached"}, zap.NewNop())
	assert.Error(t, err, "unknown providers are rejected")

	_, err = NewCache(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		key     string
		pattern string
		want    bool
	}{
		{"summary:home:7", "summary:*:7", true},
		{"summary:badges:7", "summary:*:7", true},
		{"summary:home:70", "summary:*:7", false},
		{"summary:home:8", "summary:*:7", false},
		{"summary:home:7", "summary:home:7", true},
		{"summary:home:7", "*", true},
		{"other:home:7", "summary:*", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchPattern(tc.key, tc.pattern), "%s vs %s", tc.key, tc.pattern)
	}
}
