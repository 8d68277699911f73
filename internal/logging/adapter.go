package logging

import (
	"log/slog"
)

// Logger is the logging surface components depend on. *slog.Logger satisfies
// it directly, and tests can substitute a recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter adapts an slog.Logger to the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug logs a debug message with key-value pairs.
func (a *SlogAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

// Info logs an info message with key-value pairs.
func (a *SlogAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func (a *SlogAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

// Error logs an error message with key-value pairs.
func (a *SlogAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

// Logger returns the underlying slog.Logger for direct access when needed.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}

// OrDefault returns l, or an adapter over slog.Default() when l is nil.
// The default is resolved per call so loggers installed later by Setup apply.
func OrDefault(l Logger) Logger {
	if l == nil {
		return NewSlogAdapter(nil)
	}
	return l
}
