package hsearch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/predicate"
	"github.com/hupe1980/hsearch/search"
	"github.com/hupe1980/hsearch/types"
)

var (
	// ErrEncoding is returned when a value cannot be encoded by a field codec.
	ErrEncoding = errors.New("hsearch: encoding failed")

	// ErrDslIncompatible is returned when a field of a multi-index scope is
	// not queried the same way in every index.
	ErrDslIncompatible = errors.New("hsearch: incompatible field types across indexes")

	// ErrPreconditionViolation is returned on API misuse.
	ErrPreconditionViolation = errors.New("hsearch: precondition violation")

	// ErrSegmentResolution is returned when a segment cannot be mapped to the
	// index that owns it.
	ErrSegmentResolution = errors.New("hsearch: segment resolution failed")

	// ErrNotFound is returned for unknown indexes, fields and files.
	ErrNotFound = errors.New("hsearch: not found")

	// ErrClosed is returned by operations on a closed backend or index.
	ErrClosed = errors.New("hsearch: closed")

	// ErrInvalidArgument is returned for values a field cannot accept.
	ErrInvalidArgument = errors.New("hsearch: invalid argument")

	// ErrIndexExists is returned by CreateIndex for a name already in use.
	ErrIndexExists = errors.New("hsearch: index already exists")
)

// IndexError reports a failed write to one index.
//
// The original underlying error can be accessed via errors.Unwrap.
type IndexError struct {
	Index string
	ID    string
	cause error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %q, document %q: %v", e.Index, e.ID, e.cause)
}

func (e *IndexError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, codec.ErrEncoding) {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	var dsl *predicate.DslIncompatibilityError
	if errors.As(err, &dsl) {
		return fmt.Errorf("%w: %w", ErrDslIncompatible, err)
	}
	if errors.Is(err, predicate.ErrPreconditionViolation) || errors.Is(err, search.ErrPreconditionViolation) ||
		errors.Is(err, search.ErrCollectorState) {
		return fmt.Errorf("%w: %w", ErrPreconditionViolation, err)
	}
	if errors.Is(err, index.ErrSegmentResolution) {
		return fmt.Errorf("%w: %w", ErrSegmentResolution, err)
	}

	// Not found unification.
	if errors.Is(err, types.ErrUnknownField) || errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, index.ErrClosed) || errors.Is(err, directory.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	if errors.Is(err, predicate.ErrInvalidPredicate) || errors.Is(err, types.ErrUnsupported) ||
		errors.Is(err, convert.ErrUnsupportedValue) || errors.Is(err, convert.ErrOutOfRange) ||
		errors.Is(err, index.ErrDuplicateID) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
