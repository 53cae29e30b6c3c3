package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second job for the same logical key).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrJobNotFound indicates that the requested batch job does not exist.
	ErrJobNotFound = fmt.Errorf("%w: batch job", ErrNotFound)

	// ErrReflectionNotFound indicates that the requested reflection does not exist.
	ErrReflectionNotFound = fmt.Errorf("%w: reflection", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrJobExists indicates a job already exists for the ID or logical key.
	ErrJobExists = fmt.Errorf("%w: batch job", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
