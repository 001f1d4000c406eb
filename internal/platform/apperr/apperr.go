/*
Package apperr defines the centralized error handling framework for the
ingestion core.

It provides a rich error type that bridges low-level store errors (registry,
index, embedding queue, crawl queue) and the error-kind taxonomy the core's
callers need to decide, per operation, whether a failure is fatal-to-the-batch
or merely log-and-continue.

Architecture:

  - AppError: A struct carrying a machine-readable Code and a message safe to
    surface in logs or to a caller.
  - Cause: The underlying error, kept for logging, never discarded silently.

Every error that crosses a component boundary (registry → ingestor, index →
ingestor, ...) should be wrapped as an [AppError] so the kind is inspectable
without string matching.
*/
package apperr

import "errors"

// AppError is the canonical error type for the ingestion core.
//
// # Security
//
// The Cause field is for server-side logging only; it is kept separate from
// Message so callers can log the full chain without leaking it into
// higher-level summaries.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string
	// Message is a human-readable description of the failure.
	Message string
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// NotFound creates an [AppError] for a resource that does not exist.
//
// Example:
//
//	apperr.NotFound("document") // Returns "document not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: resource + " not found",
	}
}

// Conflict creates an [AppError] for duplicate or unique-constraint violations
// (e.g. a registry insert racing another ingestion for the same url).
func Conflict(msg string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: msg,
	}
}

// Internal creates an [AppError] wrapping an unexpected store-level error.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an unexpected storage error occurred",
		Cause:   cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
