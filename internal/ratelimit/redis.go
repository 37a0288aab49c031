package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tifo/pkg/errors"
)

// RedisLimiter is a sliding-window limiter backed by a Redis sorted set,
// shared across instances. Admission is atomic via a Lua script.
type RedisLimiter struct {
	client *redis.Client
	quotas Quotas
	window time.Duration
	script *redis.Script
}

// Lua sliding-window counter (atomic).
// KEYS[1] = window key
// ARGV[1] = quota
// ARGV[2] = window in milliseconds
// ARGV[3] = now in milliseconds
// ARGV[4] = unique member suffix
// Returns: {allowed, remaining, retry_after_ms}
const luaSlidingWindowScript = `
local key = KEYS[1]
local quota = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now_ms - window_ms)

local count = redis.call('ZCARD', key)
if count >= quota then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local retry_after = 0
    if oldest[2] then
        retry_after = tonumber(oldest[2]) + window_ms - now_ms
        if retry_after < 0 then retry_after = 0 end
    end
    return {0, 0, retry_after}
end

redis.call('ZADD', key, now_ms, now_ms .. '-' .. ARGV[4])
redis.call('PEXPIRE', key, window_ms)

return {1, quota - count - 1, 0}
`

// NewRedisLimiter creates a Redis-backed sliding-window limiter.
func NewRedisLimiter(client *redis.Client, quotas Quotas, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		quotas: quotas,
		window: window,
		script: redis.NewScript(luaSlidingWindowScript),
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, identity string, class OperationClass) (Decision, error) {
	quota, ok := l.quotas[class]
	if !ok || quota <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("rate_limit:%s:%s", class, identity)
	nowMs := time.Now().UnixMilli()

	vals, err := l.script.Run(ctx, l.client,
		[]string{key},
		quota,
		l.window.Milliseconds(),
		nowMs,
		fmt.Sprintf("%d", time.Now().UnixNano()),
	).Int64Slice()
	if err != nil {
		return Decision{}, errors.Wrapf(err, "sliding window script for %s/%s", identity, class)
	}
	if len(vals) != 3 {
		return Decision{}, errors.Wrapf(errors.ErrInternal, "unexpected script reply length %d", len(vals))
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
