package batchapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransient marks failures worth retrying on a later invocation:
	// network errors, timeouts, rate limiting and 5xx responses.
	ErrTransient = errors.New("transient batch API error")

	// ErrPermanent marks failures that will not succeed on retry.
	ErrPermanent = errors.New("permanent batch API error")

	// ErrEmptyBatch is returned by Submit when there is nothing to submit.
	ErrEmptyBatch = errors.New("batch has no requests")
)

// APIError describes a failed call to the batch service.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("batch API %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("batch API %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("batch API %s: %s", e.Op, e.Message)
}

// Unwrap exposes the classification sentinel and the underlying cause.
func (e *APIError) Unwrap() []error {
	class := ErrPermanent
	if e.Transient() {
		class = ErrTransient
	}
	if e.Err != nil {
		return []error{class, e.Err}
	}
	return []error{class}
}

// Transient reports whether the failure is worth retrying later.
func (e *APIError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus reports whether an HTTP status signals a transient failure.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// IsTransient reports whether err is a transient batch API failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
