package ratelimit

import (
	"context"
	"errors"
	"time"

	limiter "github.com/ulule/limiter/v3"
)

// FixedWindow delegates counting to a ulule/limiter store. Hits are grouped into
// windows that start with the first hit of a key.
type FixedWindow struct {
	Store limiter.Store
}

// Allow implements Limiter.
func (l FixedWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, Reset: time.Now().Add(window)}, nil
	}
	if l.Store == nil {
		return Decision{}, errors.New("ratelimit: fixed window store not configured")
	}
	res, err := l.Store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(max)})
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
