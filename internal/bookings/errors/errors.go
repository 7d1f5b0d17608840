package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrDuplicateReference = errors.New("booking reference already exists")

	// ErrStatusConflict is returned when a conditional update finds the
	// booking in a different state than the caller expected.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)
