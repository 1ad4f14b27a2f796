// Package logging constructs the slog loggers used across tailq.
// Callers can pass any *slog.Logger; these helpers cover the common cases.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a leveled text logger writing to w.
// A nil w defaults to stderr.
func New(level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. It is the default for
// queues opened without an explicit logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
