// Package logger configures the process-wide structured logger.
// Verbose mode lowers the level to DEBUG so pipeline stages are traced.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level   slog.LevelVar
)

// SetVerbose enables or disables debug logging.
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

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer used by loggers created afterwards.
// Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	output = w
}

// New returns a text logger writing to the configured output at the
// configured level.
func New() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: &level}))
}

// Setup builds a logger and installs it as the slog default.
func Setup(w io.Writer, v bool) *slog.Logger {
	SetOutput(w)
	SetVerbose(v)
	l := New()
	slog.SetDefault(l)
	return l
}

// Section logs a stage marker at DEBUG level.
func Section(l *slog.Logger, name string) {
	l.Debug("=== " + name + " ===")
}
