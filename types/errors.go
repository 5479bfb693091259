package types

import "errors"

var (
	// ErrUnknownField is returned for paths absent from an index model.
	ErrUnknownField = errors.New("types: unknown field")

	// ErrDuplicateField is returned when a path is declared twice.
	ErrDuplicateField = errors.New("types: duplicate field")

	// ErrUnsupported is returned when a field type cannot serve a projection
	// or aggregation.
	ErrUnsupported = errors.New("types: unsupported operation")
)
