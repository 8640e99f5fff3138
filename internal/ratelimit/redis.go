package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// KEYS[1] counter, ARGV[1] limit, ARGV[2] window in ms.
// Returns {allowed, count, ttl_ms}. A denial leaves the TTL untouched.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[2])
  return {1, 1, tonumber(ARGV[2])}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
current = tonumber(current)
if current < tonumber(ARGV[1]) then
  current = redis.call('INCR', KEYS[1])
  return {1, current, ttl}
end
return {0, current, ttl}
`)

// RedisStore shares fixed-window counters across instances. Window expiry is
// delegated to Redis key TTLs, so no sweeper is needed.
type RedisStore struct {
	rdb redis.Scripter
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, limit int, win time.Duration) (Result, error) {
	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{redisKeyPrefix + key}, limit, win.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("running fixed window script: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("fixed window script returned %d values", len(vals))
	}

	count := int(vals[1])
	res := Result{
		Allowed: vals[0] == 1,
		Limit:   limit,
		ResetIn: time.Duration(vals[2]) * time.Millisecond,
	}
	if res.Allowed {
		res.Remaining = limit - count
	}
	return res, nil
}
