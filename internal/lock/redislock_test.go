package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/lock"
)

type withLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

func newRedisLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{Client: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func assertSerialised(t *testing.T, locker withLocker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, "lock:cart:demo", time.Second, func(context.Context) error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestRedisLockerSerialises(t *testing.T) {
	locker, mr := newRedisLocker(t)
	assertSerialised(t, locker)
	require.False(t, mr.Exists("lock:cart:demo"))
}

func TestLocalSerialises(t *testing.T) {
	assertSerialised(t, &lock.Local{})
}

func TestRedisLockerHonoursContext(t *testing.T) {
	locker, mr := newRedisLocker(t)
	require.NoError(t, mr.Set("lock:cart:busy", "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "lock:cart:busy", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	v, err := mr.Get("lock:cart:busy")
	require.NoError(t, err)
	require.Equal(t, "someone-else", v)
}

func TestLocalHonoursContext(t *testing.T) {
	var l lock.Local
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", 0, func(context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "k", 0, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockerWithoutClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotConfigured)
}
