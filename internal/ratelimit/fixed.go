package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow applies a formatted rate such as "10-M" per key.
type FixedWindow struct {
	limiter *limiter.Limiter
}

// NewFixedWindow builds a FixedWindow stored in Redis, or in process memory
// when rdb is nil.
func NewFixedWindow(rdb *redis.Client, rate, prefix string) (*FixedWindow, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return newFixedWindow(rdb, parsed, prefix)
}

// NewFixedWindowPeriod is NewFixedWindow with an explicit limit and period.
func NewFixedWindowPeriod(rdb *redis.Client, limit int, period time.Duration, prefix string) (*FixedWindow, error) {
	if limit <= 0 || period <= 0 {
		return nil, fmt.Errorf("invalid rate %d per %s", limit, period)
	}
	return newFixedWindow(rdb, limiter.Rate{Limit: int64(limit), Period: period}, prefix)
}

func newFixedWindow(rdb *redis.Client, rate limiter.Rate, prefix string) (*FixedWindow, error) {
	opts := limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}
	var store limiter.Store
	if rdb != nil {
		var err error
		store, err = limiterredis.NewStoreWithOptions(rdb, opts)
		if err != nil {
			return nil, fmt.Errorf("limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	return &FixedWindow{limiter: limiter.New(store, rate)}, nil
}

// Allow counts a request for key.
func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	lctx, err := f.limiter.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
