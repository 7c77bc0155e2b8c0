// Package ratelimit provides the redis-backed token bucket that throttles
// login attempts. It guards the login endpoint only; the authentication
// gate is never rate limited.
package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the interface for rate limiting operations
type Limiter interface {
	// Allow checks if a request is allowed for the given key
	// Returns:
	//   - allowed: true if request is allowed
	//   - remaining: number of requests remaining in the bucket
	//   - resetTime: when capacity becomes available again
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetTime time.Time, err error)

	// Reset clears the rate limit for a key
	Reset(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}

// Config holds rate limiter configuration
type Config struct {
	// Rate is the sustained refill rate in tokens per second.
	Rate float64

	// Burst is the bucket capacity.
	Burst int

	// KeyPrefix is the Redis key prefix.
	KeyPrefix string

	// FailOpen allows requests through when Redis is unavailable. Login
	// availability is preferred over strict throttling.
	FailOpen bool
}

// DefaultConfig returns default rate limiter configuration: one sustained
// attempt per second with a burst of ten.
func DefaultConfig() *Config {
	return &Config{
		Rate:      1,
		Burst:     10,
		KeyPrefix: "ratelimit:login",
		FailOpen:  true,
	}
}

// NoopLimiter allows everything. Used when rate limiting is disabled.
type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	return true, 0, time.Time{}, nil
}

func (NoopLimiter) Reset(ctx context.Context, key string) error { return nil }

func (NoopLimiter) Close() error { return nil }
