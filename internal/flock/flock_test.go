package flock

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "queue.lock"))

	require.NoError(t, lock.Acquire(true))
	require.NoError(t, lock.Release())

	// Reacquirable after release.
	require.NoError(t, lock.Acquire(true))
	require.NoError(t, lock.Release())
}

func TestLock_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "queue.lock")
	lock := New(path)

	require.NoError(t, lock.Acquire(true))
	defer func() { require.NoError(t, lock.Release()) }()

	assert.Equal(t, path, lock.Path())
}

func TestLock_NonBlockingConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.lock")

	first := New(path)
	require.NoError(t, first.Acquire(true))

	// A separate Lock over the same path sees the OS-level lock held.
	second := New(path)
	err := second.Acquire(false)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire(false))
	require.NoError(t, second.Release())
}

func TestLock_BlockingWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.lock")

	first := New(path)
	require.NoError(t, first.Acquire(true))

	second := New(path)
	acquired := make(chan struct{})
	go func() {
		require.NoError(t, second.Acquire(true))
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("blocking acquire succeeded while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Release())

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("blocking acquire never completed after release")
	}
	require.NoError(t, second.Release())
}

func TestLock_SerializesGoroutines(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "queue.lock"))

	var (
		wg      sync.WaitGroup
		holders int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				require.NoError(t, lock.Acquire(true))
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				mu.Lock()
				holders--
				mu.Unlock()
				require.NoError(t, lock.Release())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one goroutine may hold the lock")
}
