package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements rate limiting using Redis with a token bucket
// algorithm. The bucket update runs as a Lua script so concurrent logins
// for the same key stay atomic.
type RedisLimiter struct {
	client            *redis.Client
	config            *Config
	tokenBucketScript *redis.Script
}

// NewRedisLimiter creates a new Redis-backed rate limiter
func NewRedisLimiter(client *redis.Client, config *Config) *RedisLimiter {
	if config == nil {
		config = DefaultConfig()
	}

	// Token bucket Lua script (executed atomically in Redis)
	// KEYS[1] = rate limit key
	// ARGV[1] = current time (float seconds)
	// ARGV[2] = refill rate (tokens per second)
	// ARGV[3] = capacity (max tokens)
	tokenBucketScript := redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local rate = tonumber(ARGV[2])
		local capacity = tonumber(ARGV[3])

		local tokens = tonumber(redis.call('HGET', key, 'tokens'))
		local last_refill = tonumber(redis.call('HGET', key, 'last_refill'))

		if tokens == nil then
			tokens = capacity
			last_refill = now
		end

		local elapsed = now - last_refill
		tokens = math.min(tokens + elapsed * rate, capacity)

		local allowed = tokens >= 1
		if allowed then
			tokens = tokens - 1
		end

		redis.call('HSET', key, 'tokens', tokens)
		redis.call('HSET', key, 'last_refill', now)
		redis.call('EXPIRE', key, math.ceil(capacity / rate * 2))

		local retry_after = 0
		if not allowed then
			retry_after = (1 - tokens) / rate
		end

		return {allowed and 1 or 0, math.floor(tokens), math.ceil(retry_after)}
	`)

	return &RedisLimiter{
		client:            client,
		config:            config,
		tokenBucketScript: tokenBucketScript,
	}
}

// Allow checks if a request is allowed for the given key.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()

	redisKey := fmt.Sprintf("%s:%s", rl.config.KeyPrefix, key)

	result, err := rl.tokenBucketScript.Run(
		ctx,
		rl.client,
		[]string{redisKey},
		float64(now.Unix())+float64(now.Nanosecond())/1e9,
		rl.config.Rate,
		rl.config.Burst,
	).Result()

	if err != nil {
		// Fail open if configured and Redis is unavailable
		if rl.config.FailOpen {
			return true, 0, now, nil
		}
		return false, 0, time.Time{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Parse result: {allowed, remaining, retry_after_seconds}
	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("invalid script result")
	}

	allowed, ok := resultSlice[0].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("invalid script result")
	}
	remaining, _ := resultSlice[1].(int64)
	retryAfterSecs, _ := resultSlice[2].(int64)

	resetTime := now.Add(time.Duration(retryAfterSecs) * time.Second)

	return allowed == 1, int(remaining), resetTime, nil
}

// Reset clears the rate limit for a key
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", rl.config.KeyPrefix, key)
	if err := rl.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (rl *RedisLimiter) Close() error {
	return rl.client.Close()
}
