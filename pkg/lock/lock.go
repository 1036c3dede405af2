// Package lock provides per-execution mutual exclusion so that a single
// journey execution is advanced by at most one process at a time.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyLocked is returned when another process holds the execution lock.
// Callers should treat it as "someone else is advancing this execution" and
// back off, not as a failure.
var ErrAlreadyLocked = errors.New("execution is locked by another process")

// Locker acquires an exclusive lock for one execution id. The lock protects a
// single execution only; executions of different customers advance freely in
// parallel.
type Locker interface {
	// Acquire obtains the lock or returns ErrAlreadyLocked. TTL bounds how
	// long a crashed holder can block the execution.
	Acquire(ctx context.Context, executionID string, ttl time.Duration) (Release, error)
}

// Release frees an acquired lock.
type Release func(ctx context.Context) error
