// Package store implements the on-disk queue protocol.
//
// A store owns two files in a single directory:
//
//	<dir>/queue.data    concatenated encoded blocks, append order
//	<dir>/queue.index   one 8-byte big-endian length per queued block
//
// Publish appends an encoded block to the data file and then appends its
// physical length to the index file. Get reads the trailing index record,
// shrinks the index file by 8 bytes, reads that many bytes from the tail of
// the data file, and shrinks the data file to match. Retrieval is therefore
// strictly last-in-first-out: the fixed-width trailer is the only record
// boundary known without scanning, and that is the protocol's deliberate
// trade.
//
// Both operations run their entire file access inside the advisory lock
// provided at construction, re-checking storage existence after acquisition
// so the check-then-create window is closed. No state about queue contents
// is kept in memory between calls; the files are the sole source of truth.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vnykmshr/tailq/internal/format"
	"github.com/vnykmshr/tailq/internal/fsx"
	"github.com/vnykmshr/tailq/internal/logging"
)

// File names inside a queue directory.
const (
	DataFileName  = "queue.data"
	IndexFileName = "queue.index"
	LockFileName  = "queue.lock"
)

var (
	// ErrStorageUnavailable indicates a queue file could not be opened or
	// statted before any destructive mutation occurred. The operation
	// aborted cleanly; on-disk state is unchanged.
	ErrStorageUnavailable = errors.New("tailq: storage unavailable")

	// ErrIndexDesync indicates a failure after one file was mutated but
	// before the paired file could be mutated to match, or that the two
	// files were already found inconsistent. The store never repairs this
	// automatically; the files are left for operator inspection.
	ErrIndexDesync = errors.New("tailq: index and data files desynchronized")
)

// LockPath returns the conventional lock-file path for a queue directory.
func LockPath(dir string) string {
	return filepath.Join(dir, LockFileName)
}

// Locker is the mutual-exclusion collaborator. A blocking acquire suspends
// until the lock is held; the store holds it across every file access of a
// single operation and releases it on all exit paths.
type Locker interface {
	Acquire(blocking bool) error
	Release() error
}

// Filesystem is the directory and file management collaborator.
type Filesystem interface {
	Exists(paths ...string) (bool, error)
	MkdirAll(path string) error
	Touch(paths ...string) error
}

// Options configures a Store.
type Options struct {
	// Codec encodes and decodes blocks. Defaults to an uncompressed codec.
	Codec *format.BlockCodec

	// FS is the filesystem collaborator. Defaults to the OS filesystem.
	FS Filesystem

	// Logger receives debug-level operation logs. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Store is a durable queue over two plain files.
type Store struct {
	dir       string
	dataPath  string
	indexPath string

	codec  *format.BlockCodec
	lock   Locker
	fs     Filesystem
	logger *slog.Logger
}

// New creates a store over the given directory, guarded by lock.
// The directory and files are not created until the first operation.
func New(dir string, lock Locker, opts Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if lock == nil {
		return nil, errors.New("store: nil lock")
	}
	if opts.Codec == nil {
		opts.Codec = format.NewBlockCodec(format.CompressionNone, 0)
	}
	if opts.FS == nil {
		opts.FS = fsx.FS{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Store{
		dir:       dir,
		dataPath:  filepath.Join(dir, DataFileName),
		indexPath: filepath.Join(dir, IndexFileName),
		codec:     opts.Codec,
		lock:      lock,
		fs:        opts.FS,
		logger:    opts.Logger,
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// Codec returns the block codec in use.
func (s *Store) Codec() *format.BlockCodec { return s.codec }

// ensureStorage creates the directory and both queue files if any are
// missing. Callers must hold the lock; the existence check is only
// trustworthy inside the critical section.
func (s *Store) ensureStorage() error {
	ok, err := s.fs.Exists(s.dataPath, s.indexPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if ok {
		return nil
	}
	if err := s.fs.MkdirAll(s.dir); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.fs.Touch(s.dataPath, s.indexPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.logger.Debug("initialized queue storage", "dir", s.dir)
	return nil
}

// Publish encodes the block and appends it to the queue.
//
// The data file grows by exactly the encoded length at its tail, then the
// index file grows by exactly 8 bytes holding that length. A failure before
// the data write is ErrStorageUnavailable (state unchanged); a failure after
// it is ErrIndexDesync, because the data file then holds a record the index
// does not describe.
func (s *Store) Publish(body []byte, headers map[string]string) error {
	if err := s.lock.Acquire(true); err != nil {
		return fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer func() { _ = s.lock.Release() }()

	if err := s.ensureStorage(); err != nil {
		return err
	}

	data, err := s.codec.Encode(&format.Block{Body: body, Headers: headers})
	if err != nil {
		return err
	}

	df, err := os.OpenFile(s.dataPath, os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: path is the caller's queue directory
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, s.dataPath, err)
	}
	if _, err := df.Write(data); err != nil {
		_ = df.Close()
		return fmt.Errorf("%w: data file may hold a partial unindexed record: write %s: %v",
			ErrIndexDesync, s.dataPath, err)
	}
	if err := df.Sync(); err != nil {
		_ = df.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrIndexDesync, s.dataPath, err)
	}
	if err := df.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIndexDesync, s.dataPath, err)
	}

	// From here the data file holds an unindexed record; every failure is a
	// desync, not a clean abort.
	idx, err := os.OpenFile(s.indexPath, os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: path is the caller's queue directory
	if err != nil {
		return fmt.Errorf("%w: data file holds an unindexed record: open %s: %v",
			ErrIndexDesync, s.indexPath, err)
	}
	if _, err := idx.Write(format.MarshalIndexRecord(uint64(len(data)))); err != nil {
		_ = idx.Close()
		return fmt.Errorf("%w: write %s: %v", ErrIndexDesync, s.indexPath, err)
	}
	if err := idx.Sync(); err != nil {
		_ = idx.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrIndexDesync, s.indexPath, err)
	}
	if err := idx.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIndexDesync, s.indexPath, err)
	}

	s.logger.Debug("published block", "bytes", len(data), "headers", len(headers))
	return nil
}

// Get removes and returns the most recently published block.
// Returns (nil, nil) when the queue is empty.
//
// The block bytes are removed from disk inside the critical section and
// decoded after the lock is released; a decode failure (ErrDecode) therefore
// means the record is permanently lost. That sharp edge is inherent to the
// truncation protocol, which has no way to put bytes back without racing a
// concurrent publisher.
func (s *Store) Get() (*format.Block, error) {
	raw, err := s.popTail()
	if err != nil || raw == nil {
		return nil, err
	}
	return s.codec.Decode(raw)
}

// popTail removes and returns the trailing encoded record under the lock.
// Returns (nil, nil) when the index file is empty.
func (s *Store) popTail() ([]byte, error) {
	if err := s.lock.Acquire(true); err != nil {
		return nil, fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer func() { _ = s.lock.Release() }()

	if err := s.ensureStorage(); err != nil {
		return nil, err
	}

	idx, err := os.OpenFile(s.indexPath, os.O_RDWR, 0o644) //nolint:gosec // G304: path is the caller's queue directory
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, s.indexPath, err)
	}

	st, err := idx.Stat()
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorageUnavailable, s.indexPath, err)
	}
	indexSize := st.Size()

	if indexSize == 0 {
		_ = idx.Close()
		return nil, nil
	}
	if indexSize%format.IndexRecordSize != 0 {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: index size %d is not a multiple of %d",
			ErrIndexDesync, indexSize, format.IndexRecordSize)
	}

	rec := make([]byte, format.IndexRecordSize)
	if _, err := idx.ReadAt(rec, indexSize-format.IndexRecordSize); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageUnavailable, s.indexPath, err)
	}
	recLen, err := format.UnmarshalIndexRecord(rec)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: %v", ErrIndexDesync, err)
	}

	// Validate against the data file before mutating anything, so a desync
	// inherited from an earlier partial failure leaves both files untouched
	// for inspection.
	dst, err := os.Stat(s.dataPath)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorageUnavailable, s.dataPath, err)
	}
	dataSize := dst.Size()
	if recLen > uint64(dataSize) {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: trailing index record claims %d bytes but data file holds %d",
			ErrIndexDesync, recLen, dataSize)
	}

	if err := idx.Truncate(indexSize - format.IndexRecordSize); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("%w: truncate %s: %v", ErrIndexDesync, s.indexPath, err)
	}
	if err := idx.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", ErrIndexDesync, s.indexPath, err)
	}

	// The index no longer describes the trailing record; every failure from
	// here until the data truncate completes is a desync.
	df, err := os.OpenFile(s.dataPath, os.O_RDWR, 0o644) //nolint:gosec // G304: path is the caller's queue directory
	if err != nil {
		return nil, fmt.Errorf("%w: index already shortened: open %s: %v",
			ErrIndexDesync, s.dataPath, err)
	}
	raw := make([]byte, recLen)
	if _, err := df.ReadAt(raw, dataSize-int64(recLen)); err != nil {
		_ = df.Close()
		return nil, fmt.Errorf("%w: read %s: %v", ErrIndexDesync, s.dataPath, err)
	}
	if err := df.Truncate(dataSize - int64(recLen)); err != nil {
		_ = df.Close()
		return nil, fmt.Errorf("%w: truncate %s: %v", ErrIndexDesync, s.dataPath, err)
	}
	if err := df.Sync(); err != nil {
		_ = df.Close()
		return nil, fmt.Errorf("%w: sync %s: %v", ErrIndexDesync, s.dataPath, err)
	}
	if err := df.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", ErrIndexDesync, s.dataPath, err)
	}

	s.logger.Debug("popped block", "bytes", recLen)
	return raw, nil
}

// Stat reports the queue's on-disk state.
type Stat struct {
	// QueuedBlocks is the number of blocks currently queued.
	QueuedBlocks int64

	// DataBytes is the size of the data file in bytes.
	DataBytes int64
}

// Stat reads the current queue state under the lock.
func (s *Store) Stat() (Stat, error) {
	if err := s.lock.Acquire(true); err != nil {
		return Stat{}, fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer func() { _ = s.lock.Release() }()

	if err := s.ensureStorage(); err != nil {
		return Stat{}, err
	}

	ist, err := os.Stat(s.indexPath)
	if err != nil {
		return Stat{}, fmt.Errorf("%w: stat %s: %v", ErrStorageUnavailable, s.indexPath, err)
	}
	dst, err := os.Stat(s.dataPath)
	if err != nil {
		return Stat{}, fmt.Errorf("%w: stat %s: %v", ErrStorageUnavailable, s.dataPath, err)
	}
	if ist.Size()%format.IndexRecordSize != 0 {
		return Stat{}, fmt.Errorf("%w: index size %d is not a multiple of %d",
			ErrIndexDesync, ist.Size(), format.IndexRecordSize)
	}

	return Stat{
		QueuedBlocks: ist.Size() / format.IndexRecordSize,
		DataBytes:    dst.Size(),
	}, nil
}
