package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LevelFromString converts a level name to a slog.Level.
// Unknown names fall back to warn, the quiet default of a shell hook.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LevelFromVerbosity lowers base by one step per -v flag.
func LevelFromVerbosity(base slog.Level, verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return base
	case verbosity == 1 && base > slog.LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewLogger returns a logger writing to w. Every record carries a short
// run id so lines from concurrent shells can be told apart in a shared log file.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level})).
		With("run", RunID())
}

// Open builds the process logger: stderr, plus logFile when set.
// The returned closer must be called before exit.
func Open(level slog.Level, logFile string) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: level}
	if logFile == "" {
		return slog.New(NewLineHandler(os.Stderr, opts)).With("run", RunID()), nopCloser{}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	h := NewTeeHandler(NewLineHandler(os.Stderr, opts), NewLineHandler(f, opts))
	return slog.New(h).With("run", RunID()), f, nil
}

// NewDiscardLogger creates a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}

// RunID returns an 8 character invocation id
func RunID() string {
	return uuid.NewString()[:8]
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
