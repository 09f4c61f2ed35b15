package repository

import "errors"

var (
	// ErrNotFound is returned when a rate plan entry (a coverage category or
	// a status code) is not stored.
	ErrNotFound = errors.New("rate plan entry not found")
)
