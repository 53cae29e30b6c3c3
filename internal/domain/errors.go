package domain

import "errors"

var (
	// ErrValidation is wrapped by every entity validation error in this
	// package, so callers can test for any of them with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks an operation the caller may not perform.
	ErrUnauthorized = errors.New("unauthorized operation")
)
