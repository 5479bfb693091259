package search

import "errors"

var (
	// ErrCollectorState is returned when a collector is used outside the
	// Unbound -> SegmentBound -> Done sequence.
	ErrCollectorState = errors.New("search: collector used out of order")

	// ErrPreconditionViolation is returned when a required collaborator is nil.
	ErrPreconditionViolation = errors.New("search: precondition violation")

	// ErrMissingIdentifier is returned when a matching document has no
	// identifier doc value.
	ErrMissingIdentifier = errors.New("search: document has no identifier")
)
