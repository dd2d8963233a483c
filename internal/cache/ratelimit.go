package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyPrefix = "ratelimit:apikey:"
	rateLimitIPPrefix  = "ratelimit:ip:"
	rateLimitTTL       = 2 * time.Minute
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes in one atomic step. Time is in
// milliseconds so sub-second refills are not lost.
//
// KEYS[1] bucket, ARGV: refill per ms, capacity, now ms, ttl ms.
// Returns {allowed, retry_ms, tokens_left, full_in_ms}.
var tokenBucketScript = redis.NewScript(`
local refill = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 't', 'ts')
local tokens = tonumber(state[1]) or capacity
local since = tonumber(state[2]) or now
if now > since then
	tokens = math.min(capacity, tokens + (now - since) * refill)
end

local allowed, wait = 0, 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / refill)
end

redis.call('HSET', KEYS[1], 't', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])

return {allowed, wait, math.floor(tokens), math.ceil((capacity - tokens) / refill)}
`)

// CheckKeyRateLimit consumes one token from an API key's bucket.
// A zero ratePerMinute disables the limit.
func (c *Cache) CheckKeyRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.consume(ctx, rateLimitKeyPrefix+keyID, ratePerMinute, burst)
}

// CheckIPRateLimit consumes one token from an anonymous caller's bucket.
// The address is hashed before it reaches Redis.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*RateLimitResult, error) {
	return c.consume(ctx, rateLimitIPPrefix+hashIP(ip), ratePerMinute, burst)
}

func (c *Cache) consume(ctx context.Context, key string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}

	now := time.Now()
	perMilli := float64(ratePerMinute) / float64(time.Minute/time.Millisecond)
	res, err := tokenBucketScript.Run(ctx, c.client, []string{key},
		perMilli, burst, now.UnixMilli(), rateLimitTTL.Milliseconds(),
	).Int64Slice()
	if err != nil || len(res) != 4 {
		// Redis trouble never blocks traffic.
		return unlimited(burst), nil
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// hashIP returns a truncated SHA256 of an address.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
