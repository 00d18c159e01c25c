package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/erp/reversecharge/internal/domain/shared"
)

// keyLock is a one-slot semaphore; holding the slot means holding the lock
type keyLock struct {
	slot chan struct{}
	refs int
}

// InMemoryLocker implements Locker with per-key locks held in process memory.
// Suitable for single-instance deployments and testing.
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewInMemoryLocker creates a new in-memory locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done
func (l *InMemoryLocker) Lock(ctx context.Context, key string) (shared.Unlock, error) {
	kl := l.acquireRef(key)

	select {
	case kl.slot <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, kl)
		return nil, fmt.Errorf("%w: key %s: %w", shared.ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.slot
			l.releaseRef(key, kl)
		})
	}, nil
}

// Close releases resources. Outstanding locks stay valid until unlocked.
func (l *InMemoryLocker) Close() error {
	return nil
}

// Size returns the number of keys currently locked or waited on
func (l *InMemoryLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *InMemoryLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

// releaseRef drops the entry once nobody holds or waits for it
func (l *InMemoryLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Ensure InMemoryLocker implements Locker
var _ shared.Locker = (*InMemoryLocker)(nil)
