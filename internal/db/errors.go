package db

import "errors"

var (
	// ErrNotFound is returned when a lookup or delete matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrMultipleMatches is returned when a point lookup matches more than one row.
	ErrMultipleMatches = errors.New("multiple records match")
	// ErrInvalidOrder is returned for an order field outside the allowed set.
	ErrInvalidOrder = errors.New("invalid order field")
	// ErrSequenceConsumed is yielded when a result sequence is ranged over twice.
	ErrSequenceConsumed = errors.New("result sequence already consumed")
)
