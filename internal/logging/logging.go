package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// New creates a structured logger writing human-readable lines to stderr.
// When logPath is non-empty the same records are also appended to that file
// as JSON, creating parent directories as needed.
func New(level, logPath string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	text := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	if logPath == "" {
		return slog.New(text), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl})
	return slog.New(tee{text, file}), nil
}

// NewWithWriter creates a text logger for the given writer. Used by tests.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if level == "debug" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
