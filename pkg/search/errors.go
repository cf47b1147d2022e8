package search

import "errors"

var (
	// ErrRecordNotFound is returned when the searched record is not stored.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidParams wraps every search parameter validation failure.
	ErrInvalidParams = errors.New("invalid search parameters")
)
