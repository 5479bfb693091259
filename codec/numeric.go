package codec

import (
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/numeric"
)

const (
	// MinYear and MaxYear bound the years a year codec accepts.
	MinYear = -999_999_999
	MaxYear = 999_999_999
)

var (
	minInstant = time.UnixMilli(math.MinInt64)
	maxInstant = time.UnixMilli(math.MaxInt64)
)

// Numeric is a codec for a domain type F encoded as the numeric primitive E.
type Numeric[F any, E numeric.Number] struct {
	kind   Kind
	domain numeric.Domain[E]
	caps   Capabilities

	encode func(F) (E, error)
	decode func(E) F

	// Stored representation of encoded values.
	storedKind document.StoredKind
	toStored   func(path string, e E) document.StoredField
	fromStored func(f document.StoredField) (E, bool)

	// sentinel is reserved for indexed nils; isSentinel must accept exactly it.
	sentinel   E
	isSentinel func(E) bool

	hasNull     bool
	nullAs      F
	nullEncoded E
}

type numericSpec[F any, E numeric.Number] struct {
	kind       Kind
	domain     numeric.Domain[E]
	encode     func(F) (E, error)
	decode     func(E) F
	storedKind document.StoredKind
	toStored   func(string, E) document.StoredField
	fromStored func(document.StoredField) (E, bool)
	sentinel   E
	isSentinel func(E) bool
}

func newNumeric[F any, E numeric.Number](spec numericSpec[F, E], optFns []Option) (*Numeric[F, E], error) {
	o := applyOptions(optFns)
	if o.normalizer.Name != "" {
		return nil, fmt.Errorf("%w: %s fields cannot be normalized", ErrInvalidOption, spec.kind)
	}

	c := &Numeric[F, E]{
		kind:       spec.kind,
		domain:     spec.domain,
		caps:       o.caps,
		encode:     spec.encode,
		decode:     spec.decode,
		storedKind: spec.storedKind,
		toStored:   spec.toStored,
		fromStored: spec.fromStored,
		sentinel:   spec.sentinel,
		isSentinel: spec.isSentinel,
	}
	if c.isSentinel == nil {
		c.isSentinel = func(e E) bool { return e == spec.sentinel }
	}

	nullAs, ok, err := nullReplacement[F](o)
	if err != nil {
		return nil, err
	}
	if ok {
		c.hasNull = true
		enc, err := c.Encode(nullAs)
		if err != nil {
			return nil, fmt.Errorf("%w: null replacement: %w", ErrInvalidOption, err)
		}
		c.nullAs, c.nullEncoded = nullAs, enc
	}
	return c, nil
}

// Kind implements FieldCodec.
func (c *Numeric[F, E]) Kind() Kind { return c.kind }

// Capabilities implements FieldCodec.
func (c *Numeric[F, E]) Capabilities() Capabilities { return c.caps }

// Domain returns the numeric domain of E.
func (c *Numeric[F, E]) Domain() numeric.Domain[E] { return c.domain }

// NullReplacement returns the value nils are indexed as, if configured.
func (c *Numeric[F, E]) NullReplacement() (F, bool) { return c.nullAs, c.hasNull }

// NullSentinel implements NumericCodec.
func (c *Numeric[F, E]) NullSentinel() (E, bool) {
	if !c.hasNull {
		var zero E
		return zero, false
	}
	return c.sentinel, true
}

// Encode implements NumericCodec.
func (c *Numeric[F, E]) Encode(v F) (E, error) {
	e, err := c.encode(v)
	if err != nil {
		return e, err
	}
	if c.hasNull && c.isSentinel(e) {
		return e, &EncodingError{Kind: c.kind, Value: v, Reason: "value is reserved for indexed nulls"}
	}
	return e, nil
}

// Decode implements NumericCodec.
func (c *Numeric[F, E]) Decode(e E) (F, bool) {
	if c.hasNull && c.isSentinel(e) {
		return c.nullAs, false
	}
	return c.decode(e), true
}

// AddToDocument implements Codec.
func (c *Numeric[F, E]) AddToDocument(b *document.Builder, path string, value *F) error {
	var e E
	switch {
	case value != nil:
		var err error
		if e, err = c.Encode(*value); err != nil {
			return fmt.Errorf("field %s: %w", path, err)
		}
	case c.hasNull:
		e = c.sentinel
	default:
		return nil
	}

	if c.caps.Indexed() {
		b.AddPoint(path, c.domain.EncodePoint(e))
	}
	if c.caps.DocValued() {
		if err := b.AddNumericDocValue(path, c.domain.ToDocValue(e)); err != nil {
			return err
		}
	} else {
		b.AddFieldName(path)
	}
	if c.caps.Stored() {
		b.AddStored(c.toStored(path, e))
	}
	return nil
}

// DecodeStored implements Codec.
func (c *Numeric[F, E]) DecodeStored(f document.StoredField) (F, error) {
	e, ok := c.fromStored(f)
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s holds %s, want %s", ErrCorruptStoredField, f.Name, f.Kind, c.storedKind)
	}
	v, _ := c.Decode(e)
	return v, nil
}

// IsCompatibleWith implements FieldCodec.
func (c *Numeric[F, E]) IsCompatibleWith(other FieldCodec) bool {
	o, ok := other.(*Numeric[F, E])
	if !ok || o.kind != c.kind || o.caps != c.caps || o.hasNull != c.hasNull {
		return false
	}
	return !c.hasNull || c.domain.Compare(c.nullEncoded, o.nullEncoded) == 0
}

func identity[T any](v T) T { return v }

func storedInt32(path string, e int32) document.StoredField {
	return document.StoredInt32Field(path, e)
}

func storedInt64(path string, e int64) document.StoredField {
	return document.StoredInt64Field(path, e)
}

func storedFloat64(path string, e float64) document.StoredField {
	return document.StoredFloat64Field(path, e)
}

// NewInteger returns the codec of int32 fields.
func NewInteger(optFns ...Option) (*Numeric[int32, int32], error) {
	return newNumeric(numericSpec[int32, int32]{
		kind:       KindInteger,
		domain:     numeric.Integer(),
		encode:     func(v int32) (int32, error) { return v, nil },
		decode:     identity[int32],
		storedKind: document.StoredInt32,
		toStored:   storedInt32,
		fromStored: document.StoredField.AsInt32,
		sentinel:   math.MinInt32,
	}, optFns)
}

// NewLong returns the codec of int64 fields.
func NewLong(optFns ...Option) (*Numeric[int64, int64], error) {
	return newNumeric(numericSpec[int64, int64]{
		kind:       KindLong,
		domain:     numeric.Long(),
		encode:     func(v int64) (int64, error) { return v, nil },
		decode:     identity[int64],
		storedKind: document.StoredInt64,
		toStored:   storedInt64,
		fromStored: document.StoredField.AsInt64,
		sentinel:   math.MinInt64,
	}, optFns)
}

// NewDouble returns the codec of float64 fields. NaN cannot be encoded.
func NewDouble(optFns ...Option) (*Numeric[float64, float64], error) {
	return newNumeric(numericSpec[float64, float64]{
		kind:   KindDouble,
		domain: numeric.Double(),
		encode: func(v float64) (float64, error) {
			if math.IsNaN(v) {
				return v, &EncodingError{Kind: KindDouble, Value: v, Reason: "NaN is not a number"}
			}
			return v, nil
		},
		decode:     identity[float64],
		storedKind: document.StoredFloat64,
		toStored:   storedFloat64,
		fromStored: document.StoredField.AsFloat64,
		sentinel:   math.NaN(),
		isSentinel: func(e float64) bool { return math.IsNaN(e) },
	}, optFns)
}

// NewBoolean returns the codec of bool fields, encoded as 0 and 1.
func NewBoolean(optFns ...Option) (*Numeric[bool, int32], error) {
	return newNumeric(numericSpec[bool, int32]{
		kind:   KindBoolean,
		domain: numeric.Integer(),
		encode: func(v bool) (int32, error) {
			if v {
				return 1, nil
			}
			return 0, nil
		},
		decode:     func(e int32) bool { return e != 0 },
		storedKind: document.StoredInt32,
		toStored:   storedInt32,
		fromStored: document.StoredField.AsInt32,
		sentinel:   -1,
	}, optFns)
}

// NewYear returns the codec of year fields. Years are proleptic ISO years in
// [MinYear, MaxYear], encoded as int32.
func NewYear(optFns ...Option) (*Numeric[int, int32], error) {
	return newNumeric(numericSpec[int, int32]{
		kind:   KindYear,
		domain: numeric.Integer(),
		encode: func(v int) (int32, error) {
			if v < MinYear || v > MaxYear {
				return 0, &EncodingError{Kind: KindYear, Value: v,
					Reason: fmt.Sprintf("outside [%d, %d]", MinYear, MaxYear)}
			}
			return int32(v), nil
		},
		decode:     func(e int32) int { return int(e) },
		storedKind: document.StoredInt32,
		toStored:   storedInt32,
		fromStored: document.StoredField.AsInt32,
		sentinel:   math.MinInt32,
	}, optFns)
}

// NewInstant returns the codec of time.Time fields, encoded as milliseconds
// since the Unix epoch. Sub-millisecond precision is dropped and decoded
// values are in UTC.
func NewInstant(optFns ...Option) (*Numeric[time.Time, int64], error) {
	return newNumeric(numericSpec[time.Time, int64]{
		kind:   KindInstant,
		domain: numeric.Long(),
		encode: func(v time.Time) (int64, error) {
			if v.Before(minInstant) || v.After(maxInstant) {
				return 0, &EncodingError{Kind: KindInstant, Value: v, Reason: "outside the epoch millisecond range"}
			}
			return v.UnixMilli(), nil
		},
		decode:     func(e int64) time.Time { return time.UnixMilli(e).UTC() },
		storedKind: document.StoredInt64,
		toStored:   storedInt64,
		fromStored: document.StoredField.AsInt64,
		sentinel:   math.MinInt64,
	}, optFns)
}

var (
	_ NumericCodec[int32, int32]     = (*Numeric[int32, int32])(nil)
	_ NumericCodec[time.Time, int64] = (*Numeric[time.Time, int64])(nil)
	_ NumericCodec[float64, float64] = (*Numeric[float64, float64])(nil)
)
