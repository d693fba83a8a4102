package runlock

import (
	"context"
	"fmt"
	"sync"
)

// LocalLocker serializes runs within a single process using one semaphore
// per key. It is the default when no Redis instance is configured.
type LocalLocker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sems: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	l.mu.Lock()
	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return &localLock{sem: sem}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring run lock for %s: %w", key, ctx.Err())
	}
}

type localLock struct {
	sem  chan struct{}
	once sync.Once
}

func (l *localLock) Release(_ context.Context) error {
	l.once.Do(func() { <-l.sem })
	return nil
}
