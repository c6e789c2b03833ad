package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by a Locker without a Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker provides a Redis-backed distributed lock shared by all API replicas.
type Locker struct {
	Client       *redis.Client
	RetryBackoff time.Duration
}

// WithLock executes fn while holding a lock for the provided key. The lock is
// released when fn returns. When the lock cannot be acquired before the
// context is cancelled the context error is returned.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.Client == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}

	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		_ = l.Client.Del(ctx, key).Err()
	}
}
