// Package lock provides the single-writer discipline for lines: at most
// one mutation per line key is in flight at a time.
package lock

import (
	"context"
	"sync"
	"time"
)

// UnlockFunc releases a lock obtained from a Locker
type UnlockFunc func(ctx context.Context) error

// Locker grants exclusive access to a key.
// Lock blocks until the lock is held or ctx is done. The returned
// UnlockFunc must be called to release it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// MemoryLocker serializes writers inside one process. The ttl is ignored:
// a holder in the same process always releases through its UnlockFunc.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemoryLocker creates a locker for a single process
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done. The ttl is ignored;
// the holder always releases through the returned UnlockFunc.
func (l *MemoryLocker) Lock(ctx context.Context, key string, _ time.Duration) (UnlockFunc, error) {
	for {
		l.mu.Lock()
		released, held := l.locks[key]
		if !held {
			l.locks[key] = make(chan struct{})
			l.mu.Unlock()
			return l.unlocker(key), nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *MemoryLocker) unlocker(key string) UnlockFunc {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if ch, ok := l.locks[key]; ok {
				delete(l.locks, key)
				close(ch)
			}
		})
		return nil
	}
}
