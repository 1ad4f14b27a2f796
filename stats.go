package tailq

// Stats contains statistics about the queue's on-disk state.
type Stats struct {
	// QueuedMessages is the number of messages currently queued.
	QueuedMessages int64

	// DataBytes is the size of the data file in bytes.
	DataBytes int64
}

// Stats reads the current queue statistics under the lock.
func (q *Queue) Stats() (Stats, error) {
	if err := q.guard(); err != nil {
		return Stats{}, err
	}
	st, err := q.store.Stat()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		QueuedMessages: st.QueuedBlocks,
		DataBytes:      st.DataBytes,
	}, nil
}
