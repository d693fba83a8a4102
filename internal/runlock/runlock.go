// Package runlock serializes artifact placement per resolved path so two
// concurrent runs cannot interleave delete and write on the same file.
package runlock

import "context"

// Lock is a held mutual-exclusion lock.
type Lock interface {
	// Release gives the lock back. Safe to call once per acquired lock.
	Release(ctx context.Context) error
}

// Locker acquires a run-level lock keyed on the resolved artifact path.
// Acquire blocks until the lock is free or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}
