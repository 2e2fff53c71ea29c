package vectra

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vectra-specific helpers so operations log
// with consistent field names.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"size", size,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, topK, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"top_k", topK,
			"results", resultsFound,
		)
	}
}

// LogPreload logs a cache preload.
func (l *Logger) LogPreload(ctx context.Context, database, table string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "preload failed",
			"database", database,
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "preload completed",
			"database", database,
			"table", table,
			"records", count,
		)
	}
}

// LogSaveAll logs a persist operation.
func (l *Logger) LogSaveAll(ctx context.Context, database, table string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"database", database,
			"table", table,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"database", database,
			"table", table,
			"records", count,
		)
	}
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed")
	}
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed")
	}
}
