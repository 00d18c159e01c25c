package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_Lock(t *testing.T) {
	locker := NewInMemoryLocker()
	defer locker.Close()

	ctx := context.Background()

	t.Run("locks and unlocks a key", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, 1, locker.Size())

		unlock()
		assert.Equal(t, 0, locker.Size())
	})

	t.Run("unlock is idempotent", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "order-2")
		require.NoError(t, err)

		unlock()
		assert.NotPanics(t, assert.PanicTestFunc(unlock))

		again, err := locker.Lock(ctx, "order-2")
		require.NoError(t, err)
		again()
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		first, err := locker.Lock(ctx, "order-a")
		require.NoError(t, err)
		defer first()

		second, err := locker.Lock(ctx, "order-b")
		require.NoError(t, err)
		second()
	})

	t.Run("busy key times out with context", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "order-3")
		require.NoError(t, err)
		defer unlock()

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = locker.Lock(waitCtx, "order-3")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrLockTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, locker.Size(), "timed out waiter must drop its reference")
	})

	t.Run("waiter acquires after release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "order-4")
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			next, err := locker.Lock(ctx, "order-4")
			if err == nil {
				next()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while the first was held")
		case <-time.After(20 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("waiter never acquired the lock")
		}
	})
}

func TestInMemoryLocker_MutualExclusion(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	var (
		active  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "order")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, 0, locker.Size())
}
