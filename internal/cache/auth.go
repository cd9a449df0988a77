package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authIndexPrefix holds, per API key ID, the set of cache keys it populated.
	authIndexPrefix = "auth:key:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// CachedKey is the verified API key state stored in Redis. The owning
// user is not cached; role and suspension are re-read on every request.
type CachedKey struct {
	KeyID     string     `json:"key_id"`
	KeyPrefix string     `json:"key_prefix"`
	UserID    string     `json:"user_id"`
	Scope     []string   `json:"scope,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GetAuthContext retrieves a cached key by cache key.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*CachedKey, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var cached CachedKey
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &cached, nil
}

// SetAuthContext caches a verified key and records the cache key in the
// key's index so InvalidateAPIKey can find it. The entry never outlives
// the key's expiry.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, entry *CachedKey) error {
	ttl := authCacheTTL
	if entry.ExpiresAt != nil {
		remaining := entry.ExpiresAt.Sub(c.now())
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	indexKey := authIndexPrefix + entry.KeyID
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authCachePrefix+cacheKey, data, ttl)
	pipe.SAdd(ctx, indexKey, cacheKey)
	pipe.Expire(ctx, indexKey, authCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set auth context: %w", err)
	}
	return nil
}

// DeleteAuthContext removes a single cached auth context.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, authCachePrefix+cacheKey).Err()
}

// InvalidateAPIKey removes every cached auth context for a key.
// Called after the key is deleted so it stops authenticating at once.
func (c *Cache) InvalidateAPIKey(ctx context.Context, keyID string) error {
	indexKey := authIndexPrefix + keyID

	members, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read auth index: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authCachePrefix+m)
	}
	keys = append(keys, indexKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate auth context: %w", err)
	}
	return nil
}
