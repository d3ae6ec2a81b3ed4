package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window as a sorted set of request timestamps so that
// every replica sees the same counts.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// slidingWindowScript trims, counts and records a hit atomically.
//
// KEYS[1] window key
// ARGV    cutoff, now (unix micros), limit, window (ms), member
// returns {allowed, count before this hit, oldest score or ""}
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[5])
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
	allowed = 1
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local first = ''
if #oldest > 0 then
	first = oldest[2]
end
return {allowed, count, first}
`)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "ratelimit:", now: time.Now}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()
	reply, err := slidingWindowScript.Run(ctx, s.client, []string{s.prefix + key},
		now.Add(-window).UnixMicro(),
		now.UnixMicro(),
		limit,
		window.Milliseconds(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("evaluate rate limit window: %w", err)
	}
	if len(reply) != 3 {
		return Result{}, fmt.Errorf("evaluate rate limit window: unexpected reply %v", reply)
	}
	allowed, _ := reply[0].(int64)
	count, _ := reply[1].(int64)
	first, _ := reply[2].(string)

	resetAt := now.Add(window)
	if score, err := strconv.ParseFloat(first, 64); err == nil {
		resetAt = time.UnixMicro(int64(score)).Add(window)
	}
	if allowed == 0 {
		return Result{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Limit: limit, Remaining: limit - int(count) - 1, ResetAt: resetAt}, nil
}
