// Package flock provides the cross-process advisory lock guarding a queue
// directory. Exclusion is layered: a process-local mutex serializes
// goroutines sharing one Lock, and an OS advisory file lock serializes
// processes (and separate Lock values) sharing the same lock path.
package flock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrNotAcquired indicates a non-blocking acquire found the lock held
// elsewhere.
var ErrNotAcquired = errors.New("tailq: lock held elsewhere")

// Lock is an advisory lock over a queue directory. Construct with New.
type Lock struct {
	mu sync.Mutex
	fl *flock.Flock
}

// New creates a lock over the given lock-file path. The file (and its
// parent directory) is created on first acquisition.
func New(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// Path returns the lock-file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Acquire takes the lock. With blocking true it suspends until the lock is
// held; otherwise it fails with ErrNotAcquired when the lock is held
// elsewhere.
func (l *Lock) Acquire(blocking bool) error {
	if blocking {
		l.mu.Lock()
	} else if !l.mu.TryLock() {
		return ErrNotAcquired
	}

	// flock creates the lock file but not its parents.
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o750); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if blocking {
		if err := l.fl.Lock(); err != nil {
			l.mu.Unlock()
			return fmt.Errorf("failed to acquire lock %s: %w", l.fl.Path(), err)
		}
		return nil
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to acquire lock %s: %w", l.fl.Path(), err)
	}
	if !ok {
		l.mu.Unlock()
		return ErrNotAcquired
	}
	return nil
}

// Release drops the lock. Callers must hold it.
func (l *Lock) Release() error {
	defer l.mu.Unlock()
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.fl.Path(), err)
	}
	return nil
}
