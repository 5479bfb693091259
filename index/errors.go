package index

import (
	"errors"
	"fmt"
)

var (
	// ErrSegmentResolution is returned when a leaf cannot be mapped to the index
	// it belongs to.
	ErrSegmentResolution = errors.New("index: segment resolution failed")

	// ErrCorruptSegment is returned when a segment or live-docs file fails
	// validation.
	ErrCorruptSegment = errors.New("index: corrupt segment")

	// ErrDuplicateID is returned when a buffered document id is added twice.
	ErrDuplicateID = errors.New("index: duplicate document id")

	// ErrClosed is returned by operations on a closed writer.
	ErrClosed = errors.New("index: writer closed")

	// ErrDocValuesOrder is returned when a doc values iterator is advanced
	// backwards.
	ErrDocValuesOrder = errors.New("index: doc values advanced backwards")

	// ErrDocOutOfRange is returned for document numbers outside a segment.
	ErrDocOutOfRange = errors.New("index: document out of range")
)

// SegmentResolutionError reports a leaf the reader does not know.
type SegmentResolutionError struct {
	Ord     int
	Segment string
	cause   error
}

func (e *SegmentResolutionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("index: cannot resolve index of leaf %d (segment %q): %v", e.Ord, e.Segment, e.cause)
	}
	return fmt.Sprintf("index: cannot resolve index of leaf %d (segment %q)", e.Ord, e.Segment)
}

// Is reports whether target is ErrSegmentResolution.
func (e *SegmentResolutionError) Is(target error) bool { return target == ErrSegmentResolution }

func (e *SegmentResolutionError) Unwrap() error { return e.cause }

// CorruptSegmentError reports where a file failed validation.
type CorruptSegmentError struct {
	Name   string
	Reason string
	cause  error
}

func (e *CorruptSegmentError) Error() string {
	msg := fmt.Sprintf("index: corrupt segment %q: %s", e.Name, e.Reason)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Is reports whether target is ErrCorruptSegment.
func (e *CorruptSegmentError) Is(target error) bool { return target == ErrCorruptSegment }

func (e *CorruptSegmentError) Unwrap() error { return e.cause }
