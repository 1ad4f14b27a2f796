// Package tailq provides a durable, file-backed message queue for Go.
//
// A queue lives in a single directory holding two plain files: queue.data
// (concatenated encoded messages) and queue.index (one fixed-width 8-byte
// big-endian length per queued message). Publishing appends to both files;
// retrieval pops the most recently published message by reading the trailing
// index record and truncating both files. Retrieval order is therefore
// last-in-first-out by construction. A cross-process advisory lock
// serializes every operation, so independent processes can share one queue
// directory.
//
// Example usage:
//
//	q, err := tailq.Open("file:///var/queues/orders")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer q.Close()
//
//	// Publish a message
//	if err := q.Publish([]byte("hello"), map[string]string{"kind": "greeting"}); err != nil {
//		log.Fatal(err)
//	}
//
//	// Pop the most recent message; nil means the queue is empty
//	msg, err := q.Get()
//	if err != nil {
//		log.Fatal(err)
//	}
package tailq

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/tailq/internal/flock"
	"github.com/vnykmshr/tailq/internal/format"
	"github.com/vnykmshr/tailq/internal/logging"
	"github.com/vnykmshr/tailq/internal/store"
	"github.com/vnykmshr/tailq/internal/transport"
)

// Queue is a durable, file-backed message queue.
type Queue struct {
	mu     sync.Mutex
	closed bool

	store     *store.Store
	transport *transport.Transport
	opts      ConnectionOptions
}

// Open opens or creates the queue named by the DSN. The storage directory
// and files are created lazily on the first operation, not here.
func Open(dsn string, options ...Option) (*Queue, error) {
	dir, opts, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return openDir(dir, opts, options...)
}

// OpenDir opens or creates a queue over the given directory, bypassing DSN
// parsing.
func OpenDir(dir string, options ...Option) (*Queue, error) {
	return openDir(dir, DefaultConnectionOptions(), options...)
}

func openDir(dir string, opts ConnectionOptions, options ...Option) (*Queue, error) {
	cfg := config{opts: opts, logger: logging.Discard()}
	for _, opt := range options {
		opt(&cfg)
	}

	compression := format.CompressionNone
	if cfg.opts.Compress {
		c, err := format.ParseCompression(cfg.opts.Codec)
		if err != nil {
			return nil, err
		}
		compression = c
	}

	lock := flock.New(store.LockPath(dir))
	st, err := store.New(dir, lock, store.Options{
		Codec:  format.NewBlockCodec(compression, cfg.level),
		Logger: cfg.logger,
	})
	if err != nil {
		return nil, err
	}

	poll := time.Duration(cfg.opts.LoopSleep) * time.Microsecond
	return &Queue{
		store:     st,
		transport: transport.New(st, poll, cfg.logger),
		opts:      cfg.opts,
	}, nil
}

// Publish appends a message to the queue.
func (q *Queue) Publish(body []byte, headers map[string]string) error {
	if err := q.guard(); err != nil {
		return err
	}
	return q.store.Publish(body, headers)
}

// Send publishes through the transport adapter, stamping message-id and
// published-at headers unless the caller supplied them.
func (q *Queue) Send(body []byte, headers map[string]string) error {
	if err := q.guard(); err != nil {
		return err
	}
	return q.transport.Send(body, headers)
}

// Get removes and returns the most recently published message.
// Returns (nil, nil) when the queue is empty; absence is not an error.
func (q *Queue) Get() (*Message, error) {
	if err := q.guard(); err != nil {
		return nil, err
	}
	blk, err := q.store.Get()
	if err != nil || blk == nil {
		return nil, err
	}
	return &Message{Body: blk.Body, Headers: blk.Headers}, nil
}

// Receive blocks until a message is available or ctx is done, polling every
// LoopSleep microseconds.
func (q *Queue) Receive(ctx context.Context) (*Message, error) {
	if err := q.guard(); err != nil {
		return nil, err
	}
	d, err := q.transport.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return &Message{Body: d.Body, Headers: d.Headers}, nil
}

// Requeue publishes a previously retrieved message back onto the queue.
// Because retrieval already removed it from disk, this is the only way to
// return a message after a processing failure.
func (q *Queue) Requeue(msg *Message) error {
	if err := q.guard(); err != nil {
		return err
	}
	return q.store.Publish(msg.Body, msg.Headers)
}

// ConnectionOptions returns the configuration the queue was opened with.
func (q *Queue) ConnectionOptions() ConnectionOptions {
	return q.opts
}

// Dir returns the storage directory.
func (q *Queue) Dir() string {
	return q.store.Dir()
}

// Close marks the queue closed. The advisory lock is only held inside
// individual operations, so there is nothing to release here; Close exists
// to fail fast on use-after-close bugs.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func (q *Queue) guard() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}
