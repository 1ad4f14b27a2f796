// Package transport adapts generic send/receive/ack/reject semantics onto
// the queue store. It is deliberately thin: Send stamps identifying headers
// and publishes, Receive polls the store until a block is available, and the
// delivery handle maps ack/reject onto the truncation protocol's semantics.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/tailq/internal/logging"
	"github.com/vnykmshr/tailq/internal/store"
)

// Headers stamped by Send.
const (
	HeaderMessageID   = "message-id"
	HeaderPublishedAt = "published-at"
)

// DefaultPollInterval is the receive poll interval when none is configured.
// It matches the loop_sleep default of 500000 microseconds.
const DefaultPollInterval = 500 * time.Millisecond

// Transport is the send/receive adapter over a store.
type Transport struct {
	store  *store.Store
	poll   time.Duration
	logger *slog.Logger
}

// New creates a transport polling at the given interval.
// A non-positive interval defaults to DefaultPollInterval.
func New(s *store.Store, poll time.Duration, logger *slog.Logger) *Transport {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Transport{store: s, poll: poll, logger: logger}
}

// Send publishes a message, stamping a message-id header (unless the caller
// supplied one) and a published-at timestamp. The caller's header map is not
// modified.
func (t *Transport) Send(body []byte, headers map[string]string) error {
	stamped := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		stamped[k] = v
	}
	if _, ok := stamped[HeaderMessageID]; !ok {
		stamped[HeaderMessageID] = uuid.NewString()
	}
	if _, ok := stamped[HeaderPublishedAt]; !ok {
		stamped[HeaderPublishedAt] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if err := t.store.Publish(body, stamped); err != nil {
		return err
	}
	t.logger.Debug("sent message", "message_id", stamped[HeaderMessageID], "bytes", len(body))
	return nil
}

// Delivery is a received message. The underlying bytes were already removed
// from disk when the delivery was handed out.
type Delivery struct {
	// Body is the message payload.
	Body []byte

	// Headers holds the message headers.
	Headers map[string]string

	t *Transport
}

// MessageID returns the message-id header, or "" when absent.
func (d *Delivery) MessageID() string {
	return d.Headers[HeaderMessageID]
}

// Ack confirms processing. The truncation protocol removes a block at
// retrieval time, so acknowledgement has nothing left to do; the method
// exists so callers can keep symmetric ack/reject flows.
func (d *Delivery) Ack() error {
	return nil
}

// Reject discards the delivery or, with requeue, publishes it back onto the
// queue. A requeued message keeps its headers, including its message-id.
func (d *Delivery) Reject(requeue bool) error {
	if !requeue {
		return nil
	}
	if err := d.t.store.Publish(d.Body, d.Headers); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	d.t.logger.Debug("requeued message", "message_id", d.MessageID())
	return nil
}

// Receive polls the store until a block is available or ctx is done.
// Polling is the only waiting mechanism: the store has no notification
// channel, since independent processes may share the queue directory.
func (t *Transport) Receive(ctx context.Context) (*Delivery, error) {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		blk, err := t.store.Get()
		if err != nil {
			return nil, err
		}
		if blk != nil {
			return &Delivery{Body: blk.Body, Headers: blk.Headers, t: t}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
