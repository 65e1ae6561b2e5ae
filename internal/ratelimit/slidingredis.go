package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter registers a hit for key and decides whether it fits within max hits per window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
}

// SlidingWindow counts hits in a Redis sorted set scored by arrival time.
type SlidingWindow struct {
	Client redis.Cmdable
	Prefix string
	now    func() time.Time
}

// Allow implements Limiter.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	if l.now != nil {
		now = l.now()
	}
	reset := now.Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, Reset: reset}, nil
	}

	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Reset: reset}, err
	}

	current := int(count.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: current <= max, Remaining: remaining, Reset: reset}, nil
}
