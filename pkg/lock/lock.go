// Package lock provides the one-active-writer-per-saga serialization point.
// Commands for the same saga id must be applied sequentially; commands for
// different ids are independent and need no coordination.
package lock

import (
	"context"
	"sync"
)

// Release releases a held lock.
type Release func(ctx context.Context) error

// Locker serializes writers per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// MemoryLocker implements Locker with in-process per-key mutexes. Suitable
// for a single-process host; multi-process hosts need the Redis locker.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		keys: make(map[string]chan struct{}),
	}
}

// Acquire blocks until the key's lock is held or ctx is done.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func(context.Context) error {
			<-ch
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
