package errors

import "errors"

var (
	ErrNotFound = errors.New("tenant not found")

	ErrInvalidID = errors.New("invalid tenant ID format")

	ErrDuplicateSlug = errors.New("tenant slug already exists")
)
