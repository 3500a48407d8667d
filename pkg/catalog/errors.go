package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the caller's context ends during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrMissingCredentials is wrapped by configuration errors when the
	// customer number, username or password is not configured.
	ErrMissingCredentials = errors.New("catalog credentials not configured")
)

// ErrorKind classifies a catalog failure for retry decisions and for the
// fallback logic of callers.
type ErrorKind string

const (
	// KindConfiguration means the client cannot build a request (missing credentials).
	KindConfiguration ErrorKind = "configuration"

	// KindClient represents 4xx responses.
	KindClient ErrorKind = "client"

	// KindServer represents retryable 5xx responses.
	KindServer ErrorKind = "server"

	// KindNetwork represents connection level failures.
	KindNetwork ErrorKind = "network"

	// KindTimeout represents an attempt that hit the per-call deadline.
	KindTimeout ErrorKind = "timeout"

	// KindRemote means the service answered and reported a business error
	// (errorOccurred flag, PromoStandards ErrorMessage or a SOAP Fault).
	KindRemote ErrorKind = "remote"

	// KindParse means the response did not have the expected shape.
	KindParse ErrorKind = "parse"
)

// Error is a catalog failure with its classification.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	status := ""
	if e.StatusCode > 0 {
		status = fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("catalog %s %s error%s: %s: %v", e.Op, e.Kind, status, e.Message, e.Err)
	}
	return fmt.Sprintf("catalog %s %s error%s: %s", e.Op, e.Kind, status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var catErr *Error
	if errors.As(err, &catErr) {
		return catErr.Kind
	}
	return ""
}

// IsRemote reports whether err carries a business error reported by the service.
func IsRemote(err error) bool {
	return KindOf(err) == KindRemote
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(kind ErrorKind) bool {
	switch kind {
	case KindServer, KindNetwork, KindTimeout:
		return true
	default:
		// client errors, remote business errors, parse and configuration
		// failures give the same answer on every attempt
		return false
	}
}
