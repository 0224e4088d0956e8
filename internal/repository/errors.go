package repository

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("record already exists")
)
