package shared

import (
	"context"
	"time"
)

// Unlock releases a lock obtained from a Locker. Calling it more than once is a no-op.
type Unlock func()

// Locker grants exclusive access to a key, such as an order ID.
// Lock blocks until the key is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
	// Close releases resources held by the locker
	Close() error
}

// LockConfig holds lock acquisition settings
type LockConfig struct {
	// TTL bounds how long a distributed lock survives a crashed holder
	TTL time.Duration
	// RetryInterval is the wait between acquisition attempts on a busy key
	RetryInterval time.Duration
}

// DefaultLockConfig returns the default lock configuration
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:           30 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

// ErrLockTimeout is returned when a lock could not be acquired before ctx was done
var ErrLockTimeout = NewDomainError("LOCK_TIMEOUT", "Timed out waiting for lock")
