package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Local serialises work per key inside one process. The ttl is ignored.
type Local struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// WithLock executes fn while holding the in-process lock for key.
func (l *Local) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	kl := l.acquire(key)
	defer l.drop(key, kl)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()
	return fn(ctx)
}

func (l *Local) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*keyLock)
	}
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Local) drop(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
