// Package logging provides structured logging utilities for apkship.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Configure the process-wide logger once at startup:
//
//	logger, err := logging.Setup("info", "text", os.Stderr)
//
// Attach standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "drive.upload")
//	logger.Info("uploaded artifact",
//	    logging.FileID(id),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
// Refresh tokens and client secrets are never logged directly; use SanitizeToken
// when a token needs to be referenced at all.
package logging
