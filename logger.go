package medvox

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with medvox-specific context.
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

// WithID adds an object ID field to the logger.
func (l *Logger) WithID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// WithKind adds an index kind field to the logger.
func (l *Logger) WithKind(kind Kind) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind.String()),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(id string, err error) {
	if err != nil {
		l.Error("insert failed",
			"id", id,
			"error", err,
		)
	} else {
		l.Debug("insert completed",
			"id", id,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(kind string, results int, cacheHit bool, elapsed time.Duration) {
	l.Debug("query completed",
		"query_kind", kind,
		"results", results,
		"cache_hit", cacheHit,
		"elapsed", elapsed,
	)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(id string, found bool) {
	l.Debug("remove completed",
		"id", id,
		"found", found,
	)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(id string, err error) {
	if err != nil {
		l.Error("update failed",
			"id", id,
			"error", err,
		)
	} else {
		l.Debug("update completed",
			"id", id,
		)
	}
}

// LogOptimize logs an optimize pass.
func (l *Logger) LogOptimize(rebuilt bool, elapsed time.Duration) {
	if rebuilt {
		l.Info("optimize rebuilt structures",
			"elapsed", elapsed,
		)
	} else {
		l.Debug("optimize skipped",
			"elapsed", elapsed,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(name string, objects int, err error) {
	if err != nil {
		l.Error("snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("snapshot saved",
			"name", name,
			"objects", objects,
		)
	}
}

// LogRestore logs a snapshot restore operation.
func (l *Logger) LogRestore(name string, objects int, err error) {
	if err != nil {
		l.Error("restore failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("restore completed",
			"name", name,
			"objects", objects,
		)
	}
}
