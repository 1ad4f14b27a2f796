package tailq

// Message represents a single message in the queue.
type Message struct {
	// Body is the message payload.
	Body []byte

	// Headers holds the message headers. Keys are unique; order is not
	// significant.
	Headers map[string]string
}
