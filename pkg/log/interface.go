// Package log provides the structured logging interface used across examscore.
//
// Components never reach for a global logger on their own. They receive a
// Logger (usually from a LoggerProvider) and attach their own context with
// With. The production backend is zerolog; tests use TestLogger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("trainer").With(
//	    log.ModelNameKey, "Random Forest",
//	)
//	logger.Info("Candidate fitted",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 800,
//	    log.R2ScoreKey, 0.85,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog
// calling convention: a message followed by alternating key-value pairs.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If an error value is provided as the first field, its stack trace is
	// included when the backend supports it.
	//
	// Example:
	//   logger.Error("Candidate failed",
	//       err,
	//       log.ModelNameKey, "AdaBoost Regressor",
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. It is what gets injected into long-lived
// components such as the trainer and the HTTP server.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
