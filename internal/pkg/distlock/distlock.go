// Package distlock serialises exports of the same report across processes.
package distlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrHeld is returned by WithLock when another owner holds the lock.
var ErrHeld = errors.New("lock held by another owner")

// Lock is one named lock. Implementations must be safe for use from a
// single goroutine; concurrent callers need separate Lock values.
type Lock interface {
	// Acquire tries to acquire the lock without blocking.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Locker hands out locks by key.
type Locker interface {
	Lock(key string, ttl time.Duration) Lock
}

// WithLock runs fn while holding key. The lock is released when fn returns,
// even if fn fails.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(context.Context) error) (err error) {
	lock := l.Lock(key, ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrHeld, key)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = fmt.Errorf("failed to release lock %s: %w", key, rerr)
		}
	}()
	return fn(ctx)
}

// LocalLocker holds locks in process memory, for runs without Redis. The
// ttl is ignored; locks live until released.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Lock(key string, _ time.Duration) Lock {
	return &localLock{locker: l, key: key}
}

type localLock struct {
	locker *LocalLocker
	key    string
	owned  bool
}

func (l *localLock) Acquire(context.Context) (bool, error) {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if _, ok := l.locker.held[l.key]; ok {
		return false, nil
	}
	l.locker.held[l.key] = struct{}{}
	l.owned = true
	return true, nil
}

func (l *localLock) Release(context.Context) error {
	if !l.owned {
		return nil
	}
	l.locker.mu.Lock()
	delete(l.locker.held, l.key)
	l.locker.mu.Unlock()
	l.owned = false
	return nil
}
