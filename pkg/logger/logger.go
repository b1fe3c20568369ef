// Package logger provides the shared structured logger constructor.
package logger

import (
	"log/slog"
	"os"
)

// New returns a text slog logger writing to stderr. Debug mode lowers the
// level and includes source locations.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	return slog.New(handler)
}
