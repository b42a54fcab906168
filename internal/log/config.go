package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level aliases slog.Level; the CLI exposes debug, info, warn, error.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel maps a --log-level value to a Level. Unknown values fall
// back to info rather than failing the run.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects the log encoding.
type Format int

const (
	// FormatText is the operator-facing default
	FormatText Format = iota
	// FormatJSON is for CI runs and log collectors
	FormatJSON
)

// ParseFormat maps a --log-format value to a Format, defaulting to text.
func ParseFormat(s string) Format {
	if strings.ToLower(s) == "json" {
		return FormatJSON
	}
	return FormatText
}

// Output wraps the log destination.
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	return o.writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output encoding
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName tags every entry so daemon and CLI logs stay apart
	// when collected together.
	ServiceName string
}

// DefaultConfig returns a sensible default configuration.
// Deployment logs go to stderr so command output stays parseable.
func DefaultConfig() Config {
	return Config{
		Level:       LevelInfo,
		Format:      FormatText,
		Output:      OutputStderr(),
		ServiceName: "melvinctl",
	}
}
