package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding is matched by every *EncodingError.
	ErrEncoding = errors.New("codec: value cannot be encoded")

	// ErrCorruptStoredField is returned when a stored field does not hold the
	// primitive the codec writes.
	ErrCorruptStoredField = errors.New("codec: corrupt stored field")

	// ErrInvalidOption is returned for option values a codec cannot use.
	ErrInvalidOption = errors.New("codec: invalid option")
)

// EncodingError reports a domain value outside what a codec can encode.
type EncodingError struct {
	Kind   Kind
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("codec %s: cannot encode %v: %s", e.Kind, e.Value, e.Reason)
}

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
