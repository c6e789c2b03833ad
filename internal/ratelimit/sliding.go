package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow counts requests in a Redis sorted set over a moving window.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow registers a request for key.
func (l SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	until := now.Add(l.Window)
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: until}, nil
	}

	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-l.Window).UnixNano())
	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Reset: until}, err
	}

	current := int(countCmd.Val())
	return Decision{
		Allowed:   current <= l.Max,
		Limit:     l.Max,
		Remaining: max(l.Max-current, 0),
		Reset:     until,
	}, nil
}
