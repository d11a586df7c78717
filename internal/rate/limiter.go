package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports the outcome of a single window check.
type Result struct {
	Allowed bool
	Count   int64
	ResetAt time.Time
}

// Limiter enforces fixed-window counters keyed by (subject, kind) in Redis.
// Increment and read are a single atomic INCR so two concurrent callers can
// never both observe the last remaining slot.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{
		redis:  redisClient,
		prefix: "arl",
	}
}

func (l *Limiter) key(subject, kind string) string {
	return l.prefix + ":" + kind + ":" + subject
}

// Check consumes one slot from the window for (subject, kind) and reports
// whether the caller is within budget. The first hit opens the window; the
// counter expires with it. Callers must not perform the rate-limited side
// effect when Result.Allowed is false.
func (l *Limiter) Check(ctx context.Context, subject, kind string, window time.Duration, maxCount int) (Result, error) {
	key := l.key(subject, kind)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	resetAt := time.Now().Add(window)
	if count > 1 {
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err == nil && ttl > 0 {
			resetAt = time.Now().Add(ttl)
		}
	}

	return Result{
		Allowed: count <= int64(maxCount),
		Count:   count,
		ResetAt: resetAt,
	}, nil
}

// Peek returns the current counter without consuming a slot. Missing keys
// return zero and do not reveal subject existence.
func (l *Limiter) Peek(ctx context.Context, subject, kind string) (int64, error) {
	count, err := l.redis.Get(ctx, l.key(subject, kind)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// Reset clears the window for (subject, kind).
func (l *Limiter) Reset(ctx context.Context, subject, kind string) error {
	if err := l.redis.Del(ctx, l.key(subject, kind)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
