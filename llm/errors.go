package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors from Complete are wrapped as TransientError or FatalError. The client
// retries an endpoint only on transient errors and moves down the fallback
// chain once an endpoint gives up.

// TransientError is a failure worth another attempt: a dropped connection,
// a 429 or 5xx reply, a body cut short.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError marks err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a failure that repeats on every attempt, such as bad
// credentials or an unknown model.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError marks err as not retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err is transient and may be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// StatusError is a non-200 reply from a provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API error (status %d): %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// maxErrorBody bounds how much of a provider's error body is kept.
const maxErrorBody = 200

// classifyHTTPError wraps a non-200 reply. Rate limits, timeouts and server
// errors are transient; everything else (bad key, unknown model) is fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	err := &StatusError{Code: statusCode, Body: text}

	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= http.StatusInternalServerError:
		return NewTransientError(err)
	default:
		return NewFatalError(err)
	}
}
