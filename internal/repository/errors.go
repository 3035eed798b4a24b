package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrVersionConflict is returned when a compare-and-set write lost the
	// race against a concurrent mutation.
	ErrVersionConflict = errors.New("repository: version conflict")
)
