package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger for production and a text logger elsewhere.
func New(env string, debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, env, debug)
}

func NewWithWriter(w io.Writer, env string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "wastewatch")
}

// Discard is a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
