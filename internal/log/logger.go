// Package log is the structured logging layer shared by melvinctl and
// melvind, built on slog. Every deployment stage logs through it so a
// run reads as one correlated stream.
package log

import (
	"log/slog"
	"sync"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// Logger wraps an slog.Logger configured for this tool.
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a Logger from config.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(config.Output.Writer(), opts)
	} else {
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	}

	logger := slog.New(handler)
	if config.ServiceName != "" {
		logger = logger.With("tool", config.ServiceName)
	}
	return &Logger{slog: logger, config: config}
}

// Default creates a logger with the default configuration.
func Default() *Logger {
	return New(DefaultConfig())
}

// With returns a Logger with the given attributes added to all entries.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithError attaches error details. A DeployError contributes its code,
// cause, and suggestions as separate attributes.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	derr, ok := err.(*errors.DeployError)
	if !ok {
		return l.With("error", err.Error())
	}

	args := []any{
		"error", derr.Message,
		"error_code", string(derr.Code),
	}
	if len(derr.Suggestions) > 0 {
		args = append(args, "suggestions", derr.Suggestions)
	}
	if derr.Cause != nil {
		args = append(args, "cause", derr.Cause.Error())
	}
	return l.With(args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

var (
	defaultLogger *Logger
	loggerMu      sync.RWMutex
)

// SetDefaultLogger installs the process-wide logger. The root command
// calls this once flags are parsed.
func SetDefaultLogger(logger *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// DefaultLogger returns the process-wide logger, initializing it with
// defaults when nothing was installed yet.
func DefaultLogger() *Logger {
	loggerMu.RLock()
	if defaultLogger != nil {
		defer loggerMu.RUnlock()
		return defaultLogger
	}
	loggerMu.RUnlock()

	logger := Default()
	SetDefaultLogger(logger)
	return logger
}
