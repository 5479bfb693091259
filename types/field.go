package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/numeric"
	"github.com/hupe1980/hsearch/predicate"
	"github.com/hupe1980/hsearch/search"
)

// FieldType is the type of one logical field.
type FieldType interface {
	Kind() codec.Kind
	Codec() codec.FieldCodec
	PredicateFactory() predicate.Factory

	// AddValue converts v with the field's DSL converter and adds it to b.
	// A nil v is handled by the codec's null policy.
	AddValue(b *document.Builder, path string, v any) error

	// Project decodes a stored value.
	Project(f document.StoredField) (any, error)

	// TermsAggregation counts documents per distinct value.
	TermsAggregation(path string, size int) (*Aggregation, error)
	// RangeAggregation counts documents per range of values.
	RangeAggregation(path string, ranges []RangeSpec) (*Aggregation, error)
}

// Aggregation is a collector and the accessor of its result, valid once the
// search finished.
type Aggregation struct {
	Collector search.Collector
	Result    func() any
}

// RangeSpec is a half-open range [From, To) in caller values. A nil bound is
// open.
type RangeSpec struct {
	Key  string
	From any
	To   any
}

// RangeCount is one bucket of a range aggregation.
type RangeCount struct {
	Key   string
	Count int
}

// TermCount is one bucket of a terms aggregation.
type TermCount struct {
	Term  string
	Count int
}

// Numeric is the field type of numeric codecs.
type Numeric[F any, E numeric.Number] struct {
	codec     *codec.Numeric[F, E]
	converter convert.Converter[F]
	factory   *predicate.NumericFactory[F, E]
}

// NewNumeric returns a numeric field type converting caller values with
// converter. Raw values must already have type F.
func NewNumeric[F any, E numeric.Number](c *codec.Numeric[F, E], converter convert.Converter[F]) (*Numeric[F, E], error) {
	f, err := predicate.NewNumericFactory[F, E](converter, convert.PassThrough[F]{}, c)
	if err != nil {
		return nil, err
	}
	return &Numeric[F, E]{codec: c, converter: converter, factory: f}, nil
}

func (t *Numeric[F, E]) Kind() codec.Kind                    { return t.codec.Kind() }
func (t *Numeric[F, E]) Codec() codec.FieldCodec             { return t.codec }
func (t *Numeric[F, E]) PredicateFactory() predicate.Factory { return t.factory }

func (t *Numeric[F, E]) AddValue(b *document.Builder, path string, v any) error {
	if v == nil {
		return t.codec.AddToDocument(b, path, nil)
	}
	f, err := t.converter.Convert(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", path, err)
	}
	return t.codec.AddToDocument(b, path, &f)
}

func (t *Numeric[F, E]) Project(f document.StoredField) (any, error) {
	if !t.codec.Capabilities().Stored() {
		return nil, fmt.Errorf("%w: field %s is not stored", ErrUnsupported, f.Name)
	}
	return t.codec.DecodeStored(f)
}

func (t *Numeric[F, E]) TermsAggregation(path string, _ int) (*Aggregation, error) {
	return nil, fmt.Errorf("%w: terms aggregation on %s field %s", ErrUnsupported, t.Kind(), path)
}

func (t *Numeric[F, E]) RangeAggregation(path string, ranges []RangeSpec) (*Aggregation, error) {
	if !t.codec.Capabilities().DocValued() {
		return nil, fmt.Errorf("%w: field %s has no doc values", ErrUnsupported, path)
	}
	d := t.codec.Domain()

	bounds := make([]search.Range[E], len(ranges))
	for i, r := range ranges {
		bounds[i].Key = r.Key
		var err error
		if bounds[i].Lower, err = t.bound(r.From, path); err != nil {
			return nil, err
		}
		if bounds[i].Upper, err = t.bound(r.To, path); err != nil {
			return nil, err
		}
	}

	c := search.NewRangeAggregationCollector(path, d.FromDocValue, bounds...)
	if s, ok := t.codec.NullSentinel(); ok {
		c.Skip(d.ToDocValue(s))
	}
	return &Aggregation{
		Collector: c,
		Result: func() any {
			buckets := c.Buckets()
			out := make([]RangeCount, len(buckets))
			for i, b := range buckets {
				out[i] = RangeCount{Key: b.Range.Key, Count: b.Count}
			}
			return out
		},
	}, nil
}

func (t *Numeric[F, E]) bound(v any, path string) (*E, error) {
	if v == nil {
		return nil, nil
	}
	f, err := t.converter.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	e, err := t.codec.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	return &e, nil
}

// String is the field type of keyword fields.
type String struct {
	codec     *codec.String
	converter convert.Converter[string]
	factory   *predicate.StringFactory
}

// NewString returns a string field type converting caller values with converter.
func NewString(c *codec.String, converter convert.Converter[string]) (*String, error) {
	f, err := predicate.NewStringFactory(converter, convert.PassThrough[string]{}, c)
	if err != nil {
		return nil, err
	}
	return &String{codec: c, converter: converter, factory: f}, nil
}

func (t *String) Kind() codec.Kind                    { return codec.KindString }
func (t *String) Codec() codec.FieldCodec             { return t.codec }
func (t *String) PredicateFactory() predicate.Factory { return t.factory }

func (t *String) AddValue(b *document.Builder, path string, v any) error {
	if v == nil {
		return t.codec.AddToDocument(b, path, nil)
	}
	s, err := t.converter.Convert(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", path, err)
	}
	return t.codec.AddToDocument(b, path, &s)
}

func (t *String) Project(f document.StoredField) (any, error) {
	if !t.codec.Capabilities().Stored() {
		return nil, fmt.Errorf("%w: field %s is not stored", ErrUnsupported, f.Name)
	}
	return t.codec.DecodeStored(f)
}

func (t *String) TermsAggregation(path string, size int) (*Aggregation, error) {
	if !t.codec.Capabilities().DocValued() {
		return nil, fmt.Errorf("%w: field %s has no doc values", ErrUnsupported, path)
	}
	c := search.NewTermsAggregationCollector(path, size)
	if s, ok := t.codec.NullSentinel(); ok {
		c.Skip(s)
	}
	return &Aggregation{
		Collector: c,
		Result: func() any {
			buckets := c.Buckets()
			out := make([]TermCount, len(buckets))
			for i, b := range buckets {
				out[i] = TermCount{Term: b.Term, Count: b.Count}
			}
			return out
		},
	}, nil
}

func (t *String) RangeAggregation(path string, _ []RangeSpec) (*Aggregation, error) {
	return nil, fmt.Errorf("%w: range aggregation on string field %s", ErrUnsupported, path)
}

func fieldType[T FieldType](t T, err error) (FieldType, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Integer returns an int32 field type.
func Integer(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewInteger(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[int32, int32](c, convert.Lenient[int32]{}))
}

// Long returns an int64 field type.
func Long(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewLong(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[int64, int64](c, convert.Lenient[int64]{}))
}

// Double returns a float64 field type.
func Double(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewDouble(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[float64, float64](c, convert.Lenient[float64]{}))
}

// Boolean returns a bool field type.
func Boolean(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewBoolean(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[bool, int32](c, convert.Lenient[bool]{}))
}

// Year returns a year field type; values are plain ints such as 1905.
func Year(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewYear(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[int, int32](c, convert.Lenient[int]{}))
}

// Instant returns a time.Time field type. Strings are parsed as RFC 3339 and
// numbers as epoch milliseconds.
func Instant(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewInstant(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewNumeric[time.Time, int64](c, convert.Lenient[time.Time]{}))
}

// Keyword returns a string field type.
func Keyword(opts ...codec.Option) (FieldType, error) {
	c, err := codec.NewString(opts...)
	if err != nil {
		return nil, err
	}
	return fieldType(NewString(c, convert.Lenient[string]{}))
}

// ByName returns the field type named by a codec kind ("integer", "long",
// "double", "boolean", "year", "instant" or "string").
func ByName(name string, opts ...codec.Option) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case codec.KindInteger.String():
		return Integer(opts...)
	case codec.KindLong.String():
		return Long(opts...)
	case codec.KindDouble.String():
		return Double(opts...)
	case codec.KindBoolean.String():
		return Boolean(opts...)
	case codec.KindYear.String():
		return Year(opts...)
	case codec.KindInstant.String():
		return Instant(opts...)
	case codec.KindString.String(), "keyword":
		return Keyword(opts...)
	default:
		return nil, fmt.Errorf("%w: field type %q", ErrUnsupported, name)
	}
}
