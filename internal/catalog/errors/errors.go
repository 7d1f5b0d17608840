package errors

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")

	ErrDestinationNotFound = errors.New("destination not found")

	ErrDuplicateSlug = errors.New("slug already exists")

	// ErrInUse is returned when deleting an entry that attractions still
	// reference.
	ErrInUse = errors.New("referenced by attractions")
)
