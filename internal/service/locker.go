package service

import (
	"context"
	"sync"
)

// LocalLocker serializes work per id inside one process.
// The worker uses the Postgres advisory locker; this one backs tests and single-process runs.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int]chan struct{}
}

// NewLocalLocker creates an in-process keyed locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int]chan struct{})}
}

// Lock waits for id's slot or ctx
func (l *LocalLocker) Lock(ctx context.Context, id int) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[id] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
