// Package logger provides the process-wide leveled logger
// Printf-style helpers for CLI output, structured attributes via With for request-scoped logging
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar) // Info by default
	verbose bool
	base    = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose enables or disables debug logging
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if debug logging is enabled
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level from a config string (debug, info, warn, error)
// Unknown values fall back to info
func SetLevel(value string) {
	lvl := levelFromString(value)
	mu.Lock()
	defer mu.Unlock()
	verbose = lvl <= slog.LevelDebug
	level.Set(lvl)
}

// SetOutput redirects all log output to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w)
}

// L returns the underlying structured logger
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a structured logger carrying the given attributes
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Debug logs a message only when verbose mode is enabled
func Debug(format string, args ...interface{}) {
	L().Debug(fmt.Sprintf(format, args...))
}

// Info logs an informational message
func Info(format string, args ...interface{}) {
	L().Info(fmt.Sprintf(format, args...))
}

// Success logs a completed step
func Success(format string, args ...interface{}) {
	L().Info("✓ " + fmt.Sprintf(format, args...))
}

// Warn logs a recovered problem
func Warn(format string, args ...interface{}) {
	L().Warn(fmt.Sprintf(format, args...))
}

// Error logs a failure
func Error(format string, args ...interface{}) {
	L().Error(fmt.Sprintf(format, args...))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
