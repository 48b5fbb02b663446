package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the application logger. It writes to stderr, keeping stdout
// free for whatever the process serves, and standardizes the "error" key
// to "err".
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeKeys,
	}))
}

// NewJSON creates a logger emitting JSON records, for machine-ingested logs.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeKeys,
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func normalizeKeys(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}
