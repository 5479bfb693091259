package predicate

import (
	"fmt"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/search"
)

// StringFactory builds predicates on string codecs. Values are normalized by
// the codec before matching.
type StringFactory struct {
	standard[string]
	codec *codec.String
}

// NewStringFactory returns a factory for a string field.
func NewStringFactory(converter, raw convert.Converter[string], c *codec.String) (*StringFactory, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil codec", ErrPreconditionViolation)
	}
	s, err := newStandard(converter, raw, c)
	if err != nil {
		return nil, err
	}
	return &StringFactory{standard: s, codec: c}, nil
}

// Kind implements Factory.
func (f *StringFactory) Kind() FactoryKind { return FactoryKindString }

// Codec implements Factory.
func (f *StringFactory) Codec() codec.FieldCodec { return f.codec }

// IsDslCompatibleWith implements Factory.
func (f *StringFactory) IsDslCompatibleWith(other Factory, dsl convert.DslConverter) bool {
	o, ok := other.(*StringFactory)
	if !ok || !f.codec.IsCompatibleWith(o.codec) {
		return false
	}
	return f.convertersCompatible(o.standard, dsl)
}

func (f *StringFactory) encode(v any, dsl convert.DslConverter, path string) (string, error) {
	s, err := f.convert(v, dsl, path)
	if err != nil {
		return "", err
	}
	e, err := f.codec.Encode(s)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", path, err)
	}
	return e, nil
}

// Match implements Factory.
func (f *StringFactory) Match(path string) MatchBuilder {
	return &stringMatch{factory: f, path: path}
}

// Range implements Factory.
func (f *StringFactory) Range(path string) RangeBuilder {
	return &stringRange{factory: f, path: path}
}

// Exists implements Factory.
func (f *StringFactory) Exists(path string) ExistsBuilder {
	return &existsBuilder{codec: f.codec, path: path}
}

type stringMatch struct {
	boosting
	factory *StringFactory
	path    string
	term    *string
}

func (b *stringMatch) Value(v any, dsl convert.DslConverter) error {
	if v == nil {
		s, ok := b.factory.codec.NullSentinel()
		if !ok {
			return fmt.Errorf("%w: field %s has no null replacement", ErrInvalidPredicate, b.path)
		}
		b.term = &s
		return nil
	}
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.term = &e
	return nil
}

func (b *stringMatch) Build() (search.Query, error) {
	if err := checkSearchable(b.factory.codec, b.path); err != nil {
		return nil, err
	}
	if b.term == nil {
		return nil, fmt.Errorf("%w: match on %s has no value", ErrInvalidPredicate, b.path)
	}
	return b.apply(search.TermQuery{Field: b.path, Term: *b.term}), nil
}

type stringRange struct {
	boosting
	factory *StringFactory
	path    string
	query   search.TermRangeQuery
}

func (b *stringRange) Lower(v any, exclude bool, dsl convert.DslConverter) error {
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.query.Lower, b.query.IncludeLower = &e, !exclude
	return nil
}

func (b *stringRange) Upper(v any, exclude bool, dsl convert.DslConverter) error {
	e, err := b.factory.encode(v, dsl, b.path)
	if err != nil {
		return err
	}
	b.query.Upper, b.query.IncludeUpper = &e, !exclude
	return nil
}

func (b *stringRange) Build() (search.Query, error) {
	if err := checkSearchable(b.factory.codec, b.path); err != nil {
		return nil, err
	}
	if b.query.Lower == nil && b.query.Upper == nil {
		return nil, fmt.Errorf("%w: range on %s has no bound", ErrInvalidPredicate, b.path)
	}
	q := b.query
	q.Field = b.path
	var out search.Query = q
	if s, ok := b.factory.codec.NullSentinel(); ok {
		out = excludeNulls(out, search.TermQuery{Field: b.path, Term: s})
	}
	return b.apply(out), nil
}
