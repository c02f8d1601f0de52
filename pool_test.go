package tholder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mangoship/tholder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmitAndJoinRoundTripsResult(t *testing.T) {
	pool := tholder.NewPool()

	h, err := pool.Submit(func(arg any) (any, error) {
		n := arg.(int)
		return n * 2, nil
	}, 21)
	require.NoError(t, err)

	value, err := h.Join()
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestPoolSubmitPropagatesTaskError(t *testing.T) {
	pool := tholder.NewPool()
	wantErr := errors.New("task failed")

	h, err := pool.Submit(func(any) (any, error) {
		return nil, wantErr
	}, nil)
	require.NoError(t, err)

	_, joinErr := h.Join()
	assert.Equal(t, wantErr, joinErr)
}

func TestPoolSubmitConvertsPanicToFaultError(t *testing.T) {
	pool := tholder.NewPool()

	h, err := pool.Submit(func(any) (any, error) {
		panic("task exploded")
	}, nil)
	require.NoError(t, err)

	_, joinErr := h.Join()
	var fe *tholder.FaultError
	require.ErrorAs(t, joinErr, &fe)
}

func TestPoolReusesWorkerForSequentialSubmits(t *testing.T) {
	pool := tholder.NewPool(tholder.WithInitialCapacity(1))

	for i := 0; i < 20; i++ {
		h, err := pool.Submit(func(arg any) (any, error) {
			return arg, nil
		}, i)
		require.NoError(t, err)

		value, err := h.Join()
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}

	// One worker, submitted to and joined sequentially, must never need
	// more than a single spawn — this is the whole point of the pool:
	// reuse over create/destroy per task.
	assert.Equal(t, uint64(1), pool.WorkersSpawned())
}

func TestPoolExactlyOnceExecution(t *testing.T) {
	pool := tholder.NewPool(tholder.WithInitialCapacity(4))

	const n = 200
	var counter int64
	handles := make([]*tholder.Handle, n)
	for i := 0; i < n; i++ {
		h, err := pool.Submit(func(any) (any, error) {
			atomic.AddInt64(&counter, 1)
			return nil, nil
		}, nil)
		require.NoError(t, err)
		handles[i] = h
	}

	for _, h := range handles {
		_, err := h.Join()
		require.NoError(t, err)
	}

	assert.Equal(t, int64(n), atomic.LoadInt64(&counter), "every submitted task must run exactly once")
}

func TestPoolGrowsTableUnderConcurrentLoad(t *testing.T) {
	pool := tholder.NewPool(tholder.WithInitialCapacity(2))

	const n = 64
	var wg sync.WaitGroup
	handles := make([]*tholder.Handle, n)
	var mu sync.Mutex
	block := make(chan struct{})

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := pool.Submit(func(any) (any, error) {
				<-block // hold every worker busy so the table is forced to grow
				return i, nil
			}, nil)
			require.NoError(t, err)
			mu.Lock()
			handles[i] = h
			mu.Unlock()
		}()
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, h := range handles {
			if h == nil {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	close(block)
	wg.Wait()

	for _, h := range handles {
		_, err := h.Join()
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, pool.WorkersSpawned(), uint64(n), "a busy worker per concurrent task requires at least n spawns")
}

func TestPoolWithIdleTimeoutReclaimsWorkers(t *testing.T) {
	pool := tholder.NewPool(tholder.WithInitialCapacity(1), tholder.WithIdleTimeout(5*time.Millisecond))

	h, err := pool.Submit(func(any) (any, error) { return nil, nil }, nil)
	require.NoError(t, err)
	_, err = h.Join()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pool.WorkersSpawned() == 1
	}, time.Second, time.Millisecond)

	// Wait out several idle timeouts, then submit again: a fresh worker
	// must be spawned because the first self-terminated.
	time.Sleep(50 * time.Millisecond)

	h2, err := pool.Submit(func(any) (any, error) { return "again", nil }, nil)
	require.NoError(t, err)
	value, err := h2.Join()
	require.NoError(t, err)
	assert.Equal(t, "again", value)

	assert.Equal(t, uint64(2), pool.WorkersSpawned(), "the reclaimed worker must be replaced by a new spawn")
}

func TestPoolDestroyIsIdempotent(t *testing.T) {
	pool := tholder.NewPool()
	h, err := pool.Submit(func(any) (any, error) { return nil, nil }, nil)
	require.NoError(t, err)
	_, err = h.Join()
	require.NoError(t, err)

	pool.Destroy()
	pool.Destroy() // must not panic or block
}

func TestPoolSubmitAfterDestroyReinitializes(t *testing.T) {
	pool := tholder.NewPool(tholder.WithInitialCapacity(1))
	h1, err := pool.Submit(func(any) (any, error) { return "first", nil }, nil)
	require.NoError(t, err)
	_, err = h1.Join()
	require.NoError(t, err)

	pool.Destroy()

	// SPEC_FULL.md §5: submit-after-destroy is supported, not rejected;
	// it lazily rebuilds a fresh table exactly like first use.
	h2, err := pool.Submit(func(any) (any, error) { return "second", nil }, nil)
	require.NoError(t, err)
	value, err := h2.Join()
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestPoolMetricsTrackSubmittedCompletedAndFaulted(t *testing.T) {
	pool := tholder.NewPool()

	h1, _ := pool.Submit(func(any) (any, error) { return nil, nil }, nil)
	h2, _ := pool.Submit(func(any) (any, error) { return nil, errors.New("x") }, nil)
	h1.Join()
	h2.Join()

	require.Eventually(t, func() bool {
		return pool.Metrics().Counter("tholder.tasks_completed.total").Value() == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, float64(1), pool.Metrics().Counter("tholder.tasks_faulted.total").Value())
}

func TestPoolOnWorkerSpawnedHookFires(t *testing.T) {
	pool := tholder.NewPool()

	var fired int32
	err := pool.OnWorkerSpawned(func(_ context.Context, e tholder.Event) error {
		atomic.AddInt32(&fired, 1)
		return nil
	})
	require.NoError(t, err)

	h, err := pool.Submit(func(any) (any, error) { return nil, nil }, nil)
	require.NoError(t, err)
	_, err = h.Join()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, time.Millisecond, "OnWorkerSpawned must fire once for the first task on a fresh pool")
}

// newEchoTask returns a task that stringifies whatever argument it was
// given, used by tests that only care about dispatch, not computation.
func newEchoTask() tholder.Func {
	return func(arg any) (any, error) {
		return fmt.Sprintf("%v", arg), nil
	}
}

func TestPoolEchoTaskRoundTrips(t *testing.T) {
	pool := tholder.NewPool()

	h, err := pool.Submit(newEchoTask(), 7)
	require.NoError(t, err)

	value, err := h.Join()
	require.NoError(t, err)
	assert.Equal(t, "7", value)
}
