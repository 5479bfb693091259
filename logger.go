package hsearch

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with consistent field names for backend
// operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// WithID adds a document identifier field to the logger.
func (l *Logger) WithID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogIndex logs a document write. op is "add", "update" or "delete".
func (l *Logger) LogIndex(ctx context.Context, op, index, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"index", index,
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"index", index,
			"id", id,
		)
	}
}

// LogSearch logs a search over a scope.
func (l *Logger) LogSearch(ctx context.Context, indexes []string, hits int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"indexes", indexes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"indexes", indexes,
			"hits", hits,
		)
	}
}

// LogCommit logs a commit of one index.
func (l *Logger) LogCommit(ctx context.Context, index string, generation int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"index", index,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"index", index,
			"generation", generation,
		)
	}
}

// LogOpen logs the opening of one index.
func (l *Logger) LogOpen(ctx context.Context, index string, segments, docs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"index", index,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index opened",
			"index", index,
			"segments", segments,
			"docs", docs,
		)
	}
}
