// Package logging provides the structured logger used across the pfq
// client library, wrapping go.uber.org/zap behind the Debug/Info/Warn/
// Error shape the rest of the codebase calls into.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger with a settable default instance.
type Logger struct {
	sugar *zap.SugaredLogger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// NewProduction builds a Logger using zap's production preset (JSON,
// info level and above).
func NewProduction() *Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return New(z)
}

// NewDevelopment builds a Logger using zap's development preset (console
// encoding, debug level and above, stack traces on warn+).
func NewDevelopment() *Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		z = zap.NewNop()
	}
	return New(z)
}

// NewNop builds a Logger that discards everything, used as the zero-value
// default so the library never panics on a nil logger and never logs
// unless a caller opts in.
func NewNop() *Logger {
	return New(zap.NewNop())
}

// Default returns the process-wide default logger, a no-op logger until
// SetDefault installs something louder.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewNop()
	}
	return defaultLogger
}

// SetDefault installs logger as the process-wide default.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.sugar.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.sugar.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.sugar.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.sugar.Errorw(msg, args...)
}

// Sync flushes any buffered log entries, matching zap's own Sync
// convention for callers that want to flush before exit.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}
