package predicate

import (
	"fmt"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/numeric"
	"github.com/hupe1980/hsearch/search"
)

// NumericFactory builds predicates on numeric codecs.
type NumericFactory[F any, E numeric.Number] struct {
	standard[F]
	codec codec.NumericCodec[F, E]
}

// NewNumericFactory returns a factory converting DSL values with converter,
// raw values with raw, and encoding them with c. A nil *codec.Numeric is
// rejected like a nil interface; nil pointers inside custom converter or
// codec implementations are not detected.
func NewNumericFactory[F any, E numeric.Number](converter, raw convert.Converter[F], c codec.NumericCodec[F, E]) (*NumericFactory[F, E], error) {
	if n, ok := c.(*codec.Numeric[F, E]); c == nil || (ok && n == nil) {
		return nil, fmt.Errorf("%w: nil codec", ErrPreconditionViolation)
	}
	s, err := newStandard(converter, raw, c)
	if err != nil {
		return nil, err
	}
	return &NumericFactory[F, E]{standard: s, codec: c}, nil
}

// Kind implements Factory.
func (f *NumericFactory[F, E]) Kind() FactoryKind { return FactoryKindNumeric }

// Codec implements Factory.
func (f *NumericFactory[F, E]) Codec() codec.FieldCodec { return f.codec }

// IsDslCompatibleWith implements Factory.
func (f *NumericFactory[F, E]) IsDslCompatibleWith(other Factory, dsl convert.DslConverter) bool {
	o, ok := other.(*NumericFactory[F, E])
	if !ok {
		return false
	}
	if !f.codec.IsCompatibleWith(o.codec) {
		return false
	}
	return f.convertersCompatible(o.standard, dsl)
}

func (f *NumericFactory[F, E]) encode(v any, dsl convert.DslConverter, path string) (E, error) {
	d, err := f.convert(v, dsl, path)
	if err != nil {
		var zero E
		return zero, err
	}
	e, err := f.codec.Encode(d)
	if err != nil {
		return e, fmt.Errorf("field %s: %w", path, err)
	}
	return e, nil
}

// Match implements Factory.
func (f *NumericFactory[F, E]) Match(path string) MatchBuilder {
	return &numericMatch[F, E]{factory: f, path: path}
}

// Range implements Factory.
func (f *NumericFactory[F, E]) Range(path string) RangeBuilder {
	return &numericRange[F, E]{factory: f, path: path}
}

// Exists implements Factory.
func (f *NumericFactory[F, E]) Exists(path string) ExistsBuilder {
	return &existsBuilder{codec: f.codec, path: path}
}

type numericMatch[F any, E numeric.Number] struct {
	boosting
	factory *NumericFactory[F, E]
	path    string
	value   E
	valued  bool
}

func (b *numericMatch[F, E]) Value(v any, dsl convert.DslConverter) error {
	if v == nil {
		s, ok := b.factory.codec.NullSentinel()
		if !ok {
			return fmt.Errorf("%w: field %s has no null replacement", ErrInvalidPredicate, b.path)
		}
		b.value, b.valued = s, true
		return nil
	}
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.value, b.valued = e, true
	return nil
}

func (b *numericMatch[F, E]) Build() (search.Query, error) {
	if err := checkSearchable(b.factory.codec, b.path); err != nil {
		return nil, err
	}
	if !b.valued {
		return nil, fmt.Errorf("%w: match on %s has no value", ErrInvalidPredicate, b.path)
	}
	return b.apply(b.factory.codec.Domain().ExactQuery(b.path, b.value)), nil
}

type numericRange[F any, E numeric.Number] struct {
	boosting
	factory      *NumericFactory[F, E]
	path         string
	lower, upper *E
	excludeLower bool
	excludeUpper bool
}

func (b *numericRange[F, E]) Lower(v any, exclude bool, dsl convert.DslConverter) error {
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.lower, b.excludeLower = &e, exclude
	return nil
}

func (b *numericRange[F, E]) Upper(v any, exclude bool, dsl convert.DslConverter) error {
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.upper, b.excludeUpper = &e, exclude
	return nil
}

func (b *numericRange[F, E]) Build() (search.Query, error) {
	if err := checkSearchable(b.factory.codec, b.path); err != nil {
		return nil, err
	}
	if b.lower == nil && b.upper == nil {
		return nil, fmt.Errorf("%w: range on %s has no bound", ErrInvalidPredicate, b.path)
	}
	d := b.factory.codec.Domain()
	q := d.RangeQuery(b.path, b.lower, b.upper, b.excludeLower, b.excludeUpper)
	if s, ok := b.factory.codec.NullSentinel(); ok {
		q = excludeNulls(q, d.ExactQuery(b.path, s))
	}
	return b.apply(q), nil
}
