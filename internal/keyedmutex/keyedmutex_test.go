package keyedmutex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForWaiters(t *testing.T, m *KeyedMutex, key string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Waiters(key) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d waiters on %q", n, key)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestAcquire_FIFOOrder verifies same-key acquires are granted strictly in
// arrival order.
func TestAcquire_FIFOOrder(t *testing.T) {
	m := New(0)
	ctx := context.Background()

	release, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)

	const n = 5
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := m.Acquire(ctx, "game-1")
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			rel()
		}()
		// Make arrival order deterministic: wait until the goroutine is
		// queued before launching the next.
		waitForWaiters(t, m, "game-1", i+1)
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

// TestAcquire_DistinctKeysIndependent verifies keys never block each other.
func TestAcquire_DistinctKeysIndependent(t *testing.T) {
	m := New(0)
	ctx := context.Background()

	relA, err := m.Acquire(ctx, "game-a")
	require.NoError(t, err)
	defer relA()

	done := make(chan struct{})
	go func() {
		relB, err := m.Acquire(ctx, "game-b")
		require.NoError(t, err)
		relB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire on a distinct key was blocked")
	}
}

// TestAcquire_ForcedRelease verifies a holder that never releases loses the
// lock after the hold timeout, and that its late release is harmless.
func TestAcquire_ForcedRelease(t *testing.T) {
	m := New(20 * time.Millisecond)
	ctx := context.Background()

	staleRelease, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)
	// Holder wedges: never calls release. The next acquire must still go
	// through once the timeout fires.
	rel, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)
	rel()

	staleRelease() // late release of a forcibly released lock is a no-op
	assert.False(t, m.IsLocked("game-1"))
}

// TestRelease_Idempotent verifies double release does not corrupt the queue.
func TestRelease_Idempotent(t *testing.T) {
	m := New(0)
	ctx := context.Background()

	rel, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)
	rel()
	rel()

	rel2, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)
	assert.True(t, m.IsLocked("game-1"))
	rel2()
}

// TestAcquire_ContextCancelled verifies a cancelled waiter is removed from
// the queue and later waiters still get the lock in order.
func TestAcquire_ContextCancelled(t *testing.T) {
	m := New(0)
	ctx := context.Background()

	rel, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)

	cancelCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		_, err := m.Acquire(cancelCtx, "game-1")
		errCh <- err
	}()
	waitForWaiters(t, m, "game-1", 1)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Zero(t, m.Waiters("game-1"))
	rel()
	assert.False(t, m.IsLocked("game-1"))
}

// TestIsLocked reflects hold state.
func TestIsLocked(t *testing.T) {
	m := New(0)
	assert.False(t, m.IsLocked("game-1"))

	rel, err := m.Acquire(context.Background(), "game-1")
	require.NoError(t, err)
	assert.True(t, m.IsLocked("game-1"))

	rel()
	assert.False(t, m.IsLocked("game-1"))
}

// TestDelete only removes idle entries.
func TestDelete(t *testing.T) {
	m := New(0)
	rel, err := m.Acquire(context.Background(), "game-1")
	require.NoError(t, err)

	assert.False(t, m.Delete("game-1"), "held key must not be deleted")
	rel()
	assert.True(t, m.Delete("game-1"))
	assert.True(t, m.Delete("never-seen"))
	assert.Zero(t, m.Len())
}

// TestDestroy fails pending waiters and rejects later acquires.
func TestDestroy(t *testing.T) {
	m := New(0)
	ctx := context.Background()

	rel, err := m.Acquire(ctx, "game-1")
	require.NoError(t, err)
	_ = rel

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, "game-1")
		errCh <- err
	}()
	waitForWaiters(t, m, "game-1", 1)

	m.Destroy()
	require.ErrorIs(t, <-errCh, ErrDestroyed)

	_, err = m.Acquire(ctx, "game-2")
	require.ErrorIs(t, err, ErrDestroyed)
}
