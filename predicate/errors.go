package predicate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPreconditionViolation is returned when a factory is constructed
	// without a required collaborator.
	ErrPreconditionViolation = errors.New("predicate: precondition violation")

	// ErrDslIncompatible is matched by every *DslIncompatibilityError.
	ErrDslIncompatible = errors.New("predicate: incompatible field configurations")

	// ErrInvalidPredicate is returned by Build when a builder is incomplete or
	// targets a field that cannot answer it.
	ErrInvalidPredicate = errors.New("predicate: invalid predicate")
)

// DslIncompatibilityError reports a field whose configuration differs across
// the indexes targeted by one query.
type DslIncompatibilityError struct {
	Path    string
	Indexes []string
}

func (e *DslIncompatibilityError) Error() string {
	return fmt.Sprintf("predicate: field %q has incompatible configurations in indexes [%s]; "+
		"disable DSL conversion or align the field types", e.Path, strings.Join(e.Indexes, ", "))
}

// Is reports whether target is ErrDslIncompatible.
func (e *DslIncompatibilityError) Is(target error) bool {
	return target == ErrDslIncompatible
}
