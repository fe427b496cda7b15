package storage

import "errors"

// Storage errors shared by all backends. Run artifacts are append-only:
// a run re-executed with identical inputs produces identical IDs, so a
// duplicate insert means the data is already there.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Stores never update in place.
	ErrDuplicateKey = errors.New("duplicate key: store is append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
