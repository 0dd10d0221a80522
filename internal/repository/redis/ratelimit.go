package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed one-minute window limiter keyed by caller
type RateLimiter struct {
	client            *Client
	clock             clockwork.Clock
	requestsPerMinute int
	burst             int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, clock clockwork.Clock, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		clock:             clock,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow counts one request for key in the current window
func (r *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowStart := r.clock.Now().Truncate(time.Minute)
	resetAt := windowStart.Add(time.Minute)
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart.Unix())

	pipe := r.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	limit := r.requestsPerMinute + r.burst
	remaining := limit - int(incr.Val())
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   incr.Val() <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
