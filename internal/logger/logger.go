// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Output is rendered by zerolog's console
// writer. The logger is safe for concurrent use.
package logger

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Level controls the verbosity of the logger.
type Level int32

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// Logger is a leveled, printf-style logger. Loggers derived with Named
// share their parent's level.
type Logger struct {
	level *atomic.Int32
	zl    zerolog.Logger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	w := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}

	lv := new(atomic.Int32)
	lv.Store(int32(level))

	return &Logger{
		level: lv,
		zl:    zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
	}
}

// Named returns a child logger that tags every line with the component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		level: l.level,
		zl:    l.zl.With().Str("component", component).Logger(),
	}
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	return Level(l.level.Load())
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	if l.GetLevel() >= LevelVerbose {
		l.zl.Debug().Msgf(format, args...)
	}
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Info().Msgf(format, args...)
	}
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Warn().Msgf(format, args...)
	}
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Error().Msgf(format, args...)
	}
}
