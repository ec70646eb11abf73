package swarmdb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with swarmdb-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithFile adds a file field to the logger.
func (l *Logger) WithFile(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("file", path),
	}
}

// WithRun adds a run id field to the logger.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// LogOpen logs opening a log file.
func (l *Logger) LogOpen(ctx context.Context, path string, records int, rebuilt int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"file", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "log opened",
			"file", path,
			"records", records,
			"indexes_rebuilt", rebuilt,
		)
	}
}

// LogReindex logs a missing or stale index that is about to be rebuilt.
func (l *Logger) LogReindex(ctx context.Context, path string, reason error) {
	l.WarnContext(ctx, "index missing or stale, regenerating",
		"index", path,
		"reason", reason,
	)
}

// LogSort logs a completed sort of an unsorted log.
func (l *Logger) LogSort(ctx context.Context, in, out string, records int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sort failed",
			"input", in,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sort completed",
			"input", in,
			"output", out,
			"records", records,
			"elapsed", elapsed,
		)
	}
}

// LogSnapshot logs a reconstructed snapshot.
func (l *Logger) LogSnapshot(ctx context.Context, windowEnd float64, systems int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"window_end", windowEnd,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "snapshot reconstructed",
			"window_end", windowEnd,
			"systems", systems,
		)
	}
}
