package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult contains the result of a rate limit check. ResetAt is
// when the bucket will be full again.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucketFamily groups the token buckets of one kind of subject. Idle
// buckets live at least minTTL, and hashed families never store the
// subject in clear.
type bucketFamily struct {
	prefix      string
	minTTL      time.Duration
	hashSubject bool
}

var (
	principalBuckets = bucketFamily{prefix: "ratelimit:principal:", minTTL: 2 * time.Minute}
	ipBuckets        = bucketFamily{prefix: "ratelimit:ip:", minTTL: 10 * time.Second, hashSubject: true}
)

func (f bucketFamily) key(subject string) string {
	if f.hashSubject {
		subject = hashSubject(subject)
	}
	return f.prefix + subject
}

// ttl outlives a full refill so a bucket is never dropped while partially drained.
func (f bucketFamily) ttl(ratePerSecond float64, burst int) time.Duration {
	refill := time.Duration(float64(burst) / ratePerSecond * float64(time.Second))
	return max(f.minTTL, refill.Round(time.Second)+time.Second)
}

// tokenBucketScript consumes one token from the bucket at KEYS[1].
// Time is in milliseconds and the rate is tokens per second.
// Returns {allowed, retry_after_ms, remaining_tokens, full_in_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(burst, tokens + (now - ts) * rate / 1000)
end

local allowed = 0
local retry = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	retry = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', key, ttl)

return {allowed, retry, math.floor(tokens), math.ceil((burst - tokens) * 1000 / rate)}
`)

// CheckAPIRateLimit consumes a token from an authenticated principal's
// bucket. A non-positive rate disables the limit.
func (c *Cache) CheckAPIRateLimit(ctx context.Context, principal string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.take(ctx, principalBuckets, principal, float64(ratePerMinute)/60, burst)
}

// CheckIPRateLimit consumes a token from a client IP's bucket. The IP is
// stored hashed. A non-positive rate disables the limit.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	return c.take(ctx, ipBuckets, ip, float64(ratePerSecond), burst)
}

func (c *Cache) take(ctx context.Context, family bucketFamily, subject string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	now := c.now()
	if ratePerSecond <= 0 || burst <= 0 {
		return allowAll(now, burst), nil
	}

	ttl := family.ttl(ratePerSecond, burst)
	res, err := tokenBucketScript.Run(ctx, c.client,
		[]string{family.key(subject)},
		ratePerSecond, burst, now.UnixMilli(), ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return allowAll(now, burst), fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 4 {
		return allowAll(now, burst), fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: wholeSeconds(time.Duration(res[1]) * time.Millisecond),
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
	}, nil
}

// allowAll is the result when limiting is disabled or Redis is unavailable.
func allowAll(now time.Time, burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(max(burst, 0)),
		ResetAt:   now,
	}
}

// wholeSeconds rounds up, since Retry-After is expressed in seconds.
func wholeSeconds(d time.Duration) time.Duration {
	return time.Duration(math.Ceil(d.Seconds())) * time.Second
}

// hashSubject returns a truncated SHA-256 of s, 16 hex chars.
func hashSubject(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
