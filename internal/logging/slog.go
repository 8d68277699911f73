package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyPath      = "path"
	KeyFileID    = "file_id"
	KeyExitCode  = "exit_code"
)

// Status values for consistent logging. They match the metric label values
// in package instrumentation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Setup creates the application logger, installs it as the slog default and
// returns it. level is one of debug, info, warn, error; format is text or json.
func Setup(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", level)
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Path returns a slog attribute for a local filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// FileID returns a slog attribute for a Drive file or folder ID.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// ExitCode returns a slog attribute for a subprocess exit code.
func ExitCode(code int) slog.Attr {
	return slog.Int(KeyExitCode, code)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
