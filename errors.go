package tailq

import (
	"errors"

	"github.com/vnykmshr/tailq/internal/format"
	"github.com/vnykmshr/tailq/internal/store"
)

// Common errors returned by tailq operations.
var (
	// ErrInvalidDSN indicates a malformed DSN or a missing storage path.
	ErrInvalidDSN = errors.New("tailq: invalid dsn")

	// ErrQueueClosed indicates an operation on a closed queue.
	ErrQueueClosed = errors.New("tailq: queue closed")

	// ErrStorageUnavailable indicates a queue file could not be opened
	// before any destructive mutation occurred; on-disk state is unchanged.
	ErrStorageUnavailable = store.ErrStorageUnavailable

	// ErrIndexDesync indicates the index and data files are, or risk being,
	// inconsistent. Recovery requires manual reconciliation; the queue never
	// repairs this automatically.
	ErrIndexDesync = store.ErrIndexDesync

	// ErrDecode indicates bytes read from the data file did not decode to a
	// valid message. The bytes were already removed from disk, so the
	// record is lost.
	ErrDecode = format.ErrDecode
)
