package lock

import (
	"context"
	"sync"
	"time"
)

type memoryLease struct {
	token  uint64
	expiry time.Time
}

// MemoryLocker is a process-local locker for single-worker deployments and
// tests.
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[string]memoryLease
	nextID uint64
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLease),
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, executionID string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	lease, taken := l.held[executionID]
	if taken && now.Before(lease.expiry) {
		return nil, ErrAlreadyLocked
	}

	l.nextID++
	token := l.nextID
	l.held[executionID] = memoryLease{token: token, expiry: now.Add(ttl)}

	// Delete only our own lease, so an expired lock re-acquired elsewhere is
	// never released by the old holder.
	release := func(_ context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		if current, ok := l.held[executionID]; ok && current.token == token {
			delete(l.held, executionID)
		}

		return nil
	}

	return release, nil
}
