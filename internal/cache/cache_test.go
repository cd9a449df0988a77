package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client), mr
}

func TestCache_AuthContextRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	miss, err := c.GetAuthContext(ctx, "hash-1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	entry := &CachedKey{KeyID: "key-1", KeyPrefix: "abc123", UserID: "user-1", Scope: []string{"/api/apiKeys.list"}}
	require.NoError(t, c.SetAuthContext(ctx, "hash-1", entry))

	got, err := c.GetAuthContext(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, got)
}

func TestCache_AuthContextTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	soon := now.Add(time.Minute)
	require.NoError(t, c.SetAuthContext(ctx, "short", &CachedKey{KeyID: "key-1", ExpiresAt: &soon}))
	assert.Equal(t, time.Minute, mr.TTL(authCachePrefix+"short"))

	require.NoError(t, c.SetAuthContext(ctx, "long", &CachedKey{KeyID: "key-2"}))
	assert.Equal(t, authCacheTTL, mr.TTL(authCachePrefix+"long"))

	past := now.Add(-time.Second)
	require.NoError(t, c.SetAuthContext(ctx, "expired", &CachedKey{KeyID: "key-3", ExpiresAt: &past}))
	assert.False(t, mr.Exists(authCachePrefix+"expired"))
}

func TestCache_AuthContextCorruptIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(authCachePrefix+"bad", "{not json"))

	got, err := c.GetAuthContext(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_InvalidateAPIKey(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetAuthContext(ctx, "hash-a", &CachedKey{KeyID: "key-1"}))
	require.NoError(t, c.SetAuthContext(ctx, "hash-b", &CachedKey{KeyID: "key-1"}))
	require.NoError(t, c.SetAuthContext(ctx, "hash-c", &CachedKey{KeyID: "key-2"}))

	require.NoError(t, c.InvalidateAPIKey(ctx, "key-1"))

	assert.False(t, mr.Exists(authCachePrefix+"hash-a"))
	assert.False(t, mr.Exists(authCachePrefix+"hash-b"))
	assert.False(t, mr.Exists(authIndexPrefix+"key-1"))
	assert.True(t, mr.Exists(authCachePrefix+"hash-c"), "other keys must stay cached")

	// Invalidating an unknown key is a no-op.
	require.NoError(t, c.InvalidateAPIKey(ctx, "key-unknown"))
}

func TestCache_CheckAPIRateLimit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, err := c.CheckAPIRateLimit(ctx, "user:u1", 60, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within burst", i)
	}

	res, err := c.CheckAPIRateLimit(ctx, "user:u1", 60, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	other, err := c.CheckAPIRateLimit(ctx, "user:u2", 60, 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "buckets are per principal")

	now = now.Add(2 * time.Second)
	refilled, err := c.CheckAPIRateLimit(ctx, "user:u1", 60, 3)
	require.NoError(t, err)
	assert.True(t, refilled.Allowed)
}

func TestCache_CheckAPIRateLimit_Disabled(t *testing.T) {
	c, _ := newTestCache(t)

	res, err := c.CheckAPIRateLimit(context.Background(), "user:u1", 0, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(5), res.Remaining)
}

func TestCache_CheckRateLimit_FailsOpen(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	res, err := c.CheckIPRateLimit(context.Background(), "203.0.113.1", 10, 5)
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Allowed)
}
