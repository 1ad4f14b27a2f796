package transport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/tailq/internal/flock"
	"github.com/vnykmshr/tailq/internal/store"
)

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "queue")
	s, err := store.New(dir, flock.New(store.LockPath(dir)), store.Options{})
	require.NoError(t, err)
	return New(s, 5*time.Millisecond, nil)
}

func TestTransport_Send_StampsHeaders(t *testing.T) {
	tr := newTestTransport(t)

	require.NoError(t, tr.Send([]byte("payload"), map[string]string{"kind": "job"}))

	blk, err := tr.store.Get()
	require.NoError(t, err)
	require.NotNil(t, blk)

	assert.Equal(t, "job", blk.Headers["kind"])
	_, err = uuid.Parse(blk.Headers[HeaderMessageID])
	assert.NoError(t, err, "message-id should be a uuid")

	publishedAt, err := time.Parse(time.RFC3339Nano, blk.Headers[HeaderPublishedAt])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), publishedAt, time.Minute)
}

func TestTransport_Send_KeepsCallerMessageID(t *testing.T) {
	tr := newTestTransport(t)

	headers := map[string]string{HeaderMessageID: "caller-chosen"}
	require.NoError(t, tr.Send([]byte("payload"), headers))

	// The caller's map is untouched.
	assert.Len(t, headers, 1)

	blk, err := tr.store.Get()
	require.NoError(t, err)
	require.NotNil(t, blk)
	assert.Equal(t, "caller-chosen", blk.Headers[HeaderMessageID])
}

func TestTransport_Receive(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Send([]byte("ready"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ready"), d.Body)
	assert.NotEmpty(t, d.MessageID())
	assert.NoError(t, d.Ack())
}

func TestTransport_Receive_WaitsForPublish(t *testing.T) {
	tr := newTestTransport(t)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = tr.Send([]byte("late"), nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), d.Body)
}

func TestTransport_Receive_ContextCanceled(t *testing.T) {
	tr := newTestTransport(t)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err := tr.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_Reject_Requeue(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Send([]byte("flaky"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := tr.Receive(ctx)
	require.NoError(t, err)
	originalID := d.MessageID()
	require.NotEmpty(t, originalID)

	require.NoError(t, d.Reject(true))

	// The requeued message keeps its identity.
	again, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("flaky"), again.Body)
	assert.Equal(t, originalID, again.MessageID())
}

func TestTransport_Reject_Discard(t *testing.T) {
	tr := newTestTransport(t)
	require.NoError(t, tr.Send([]byte("dropped"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := tr.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Reject(false))

	blk, err := tr.store.Get()
	require.NoError(t, err)
	assert.Nil(t, blk, "discarded message must not be requeued")
}
