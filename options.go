package tailq

import "log/slog"

// DefaultLoopSleep is the default consumer poll interval in microseconds.
const DefaultLoopSleep = 500000

// ConnectionOptions is the configuration resolved once when a queue is
// opened. It is immutable afterwards.
type ConnectionOptions struct {
	// Compress enables payload compression.
	// Default: false
	Compress bool

	// Codec names the compression codec: "gzip", "zstd", or "s2".
	// Only meaningful when Compress is set.
	// Default: "gzip"
	Codec string

	// LoopSleep is the consumer poll interval in microseconds. It is
	// consumed by Receive and otherwise carried through unchanged for
	// external polling loops.
	// Default: 500000 (500ms)
	LoopSleep int
}

// DefaultConnectionOptions returns the default configuration.
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		Compress:  false,
		Codec:     "gzip",
		LoopSleep: DefaultLoopSleep,
	}
}

type config struct {
	opts   ConnectionOptions
	level  int
	logger *slog.Logger
}

// Option is a functional option for configuring a Queue. Options are applied
// over DSN-supplied values, so an explicit option always wins.
type Option func(*config)

// WithCompression enables compression with the named codec
// ("gzip", "zstd", or "s2").
func WithCompression(codec string) Option {
	return func(c *config) {
		c.opts.Compress = true
		c.opts.Codec = codec
	}
}

// WithoutCompression disables compression.
func WithoutCompression() Option {
	return func(c *config) {
		c.opts.Compress = false
	}
}

// WithCompressionLevel sets the codec-specific compression level.
// 0 selects the codec's default.
func WithCompressionLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithLoopSleep sets the consumer poll interval in microseconds.
func WithLoopSleep(microseconds int) Option {
	return func(c *config) {
		if microseconds > 0 {
			c.opts.LoopSleep = microseconds
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
