package errors

import "errors"

var (
	ErrNotFound = errors.New("attraction not found")

	ErrInvalidID = errors.New("invalid attraction ID format")

	ErrDuplicateSlug = errors.New("attraction slug already exists")
)
