package predicate

import (
	"fmt"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/search"
)

// FactoryKind discriminates the factory variants.
type FactoryKind uint8

const (
	FactoryKindNumeric FactoryKind = iota + 1
	FactoryKindString
)

func (k FactoryKind) String() string {
	switch k {
	case FactoryKindNumeric:
		return "numeric"
	case FactoryKindString:
		return "string"
	default:
		return fmt.Sprintf("FactoryKind(%d)", uint8(k))
	}
}

// Factory creates the predicate builders of one field.
type Factory interface {
	Kind() FactoryKind
	Codec() codec.FieldCodec

	// IsDslCompatibleWith reports whether a predicate built by f can equally
	// be built by other, given the conversion mode of the query.
	IsDslCompatibleWith(other Factory, dsl convert.DslConverter) bool

	Match(path string) MatchBuilder
	Range(path string) RangeBuilder
	Exists(path string) ExistsBuilder
}

// Builder is the part shared by all predicate builders.
type Builder interface {
	// Boost multiplies the score of matching documents.
	Boost(boost float32)
	Build() (search.Query, error)
}

// MatchBuilder matches a single value.
type MatchBuilder interface {
	Builder
	// Value sets the value to match. A nil value matches documents indexed
	// with the field's null replacement.
	Value(v any, dsl convert.DslConverter) error
}

// RangeBuilder matches values between two bounds.
type RangeBuilder interface {
	Builder
	Lower(v any, exclude bool, dsl convert.DslConverter) error
	Upper(v any, exclude bool, dsl convert.DslConverter) error
}

// ExistsBuilder matches documents with a value for the field.
type ExistsBuilder interface {
	Builder
}

// boosting implements Boost for the concrete builders.
type boosting struct {
	boost float32
	set   bool
}

func (b *boosting) Boost(boost float32) {
	b.boost, b.set = boost, true
}

func (b *boosting) apply(q search.Query) search.Query {
	if !b.set || b.boost == 1 {
		return q
	}
	if _, ok := q.(search.MatchNoneQuery); ok {
		return q
	}
	return search.BoostQuery{Query: q, Boost: b.boost}
}

// standard holds the collaborators shared by the standard factories.
type standard[F any] struct {
	converter convert.Converter[F]
	raw       convert.Converter[F]
}

func newStandard[F any](converter, raw convert.Converter[F], c codec.FieldCodec) (standard[F], error) {
	switch {
	case converter == nil:
		return standard[F]{}, fmt.Errorf("%w: nil converter", ErrPreconditionViolation)
	case raw == nil:
		return standard[F]{}, fmt.Errorf("%w: nil raw converter", ErrPreconditionViolation)
	case c == nil:
		return standard[F]{}, fmt.Errorf("%w: nil codec", ErrPreconditionViolation)
	}
	return standard[F]{converter: converter, raw: raw}, nil
}

func (s standard[F]) getConverter(dsl convert.DslConverter) convert.Converter[F] {
	if dsl.IsEnabled() {
		return s.converter
	}
	return s.raw
}

func (s standard[F]) convertersCompatible(other standard[F], dsl convert.DslConverter) bool {
	return !dsl.IsEnabled() || s.converter.IsCompatibleWith(other.converter)
}

func (s standard[F]) convert(v any, dsl convert.DslConverter, path string) (F, error) {
	f, err := s.getConverter(dsl).Convert(v)
	if err != nil {
		return f, fmt.Errorf("field %s: %w", path, err)
	}
	return f, nil
}

func checkSearchable(c codec.FieldCodec, path string) error {
	if !c.Capabilities().Indexed() {
		return fmt.Errorf("%w: field %s is not searchable", ErrInvalidPredicate, path)
	}
	return nil
}

func existsQuery(c codec.FieldCodec, path string) search.Query {
	if c.Capabilities().DocValued() {
		return search.DocValuesExistsQuery{Field: path}
	}
	return search.FieldExistsQuery{Field: path}
}

// excludeNulls removes documents indexed with the null sentinel from
// range matches.
func excludeNulls(q, nulls search.Query) search.Query {
	if _, ok := q.(search.MatchNoneQuery); ok {
		return q
	}
	return search.BooleanQuery{Must: []search.Query{q}, MustNot: []search.Query{nulls}}
}

type existsBuilder struct {
	boosting
	codec codec.FieldCodec
	path  string
}

func (b *existsBuilder) Build() (search.Query, error) {
	return b.apply(existsQuery(b.codec, b.path)), nil
}
