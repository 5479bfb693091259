package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnsupportedValue is returned when a converter does not accept the
	// dynamic type of a value.
	ErrUnsupportedValue = errors.New("convert: unsupported value")

	// ErrOutOfRange is returned when a value does not fit the target type.
	ErrOutOfRange = errors.New("convert: value out of range")
)

// DslConverter selects which converter applies to DSL values.
type DslConverter uint8

const (
	// DslConverterEnabled applies the field's DSL converter. It is the zero value.
	DslConverterEnabled DslConverter = iota
	// DslConverterDisabled passes values to the raw converter.
	DslConverterDisabled
)

// IsEnabled reports whether the DSL converter applies.
func (d DslConverter) IsEnabled() bool { return d == DslConverterEnabled }

func (d DslConverter) String() string {
	if d.IsEnabled() {
		return "enabled"
	}
	return "disabled"
}

// Converter converts caller values into the domain type F.
type Converter[F any] interface {
	Convert(v any) (F, error)

	// IsCompatibleWith reports whether both converters produce the same
	// result for every input.
	IsCompatibleWith(other Converter[F]) bool
}

// PassThrough accepts values that already have type F.
type PassThrough[F any] struct{}

// Convert implements Converter.
func (PassThrough[F]) Convert(v any) (F, error) {
	f, ok := v.(F)
	if !ok {
		return f, fmt.Errorf("%w: %T, want %T", ErrUnsupportedValue, v, f)
	}
	return f, nil
}

// IsCompatibleWith implements Converter.
func (PassThrough[F]) IsCompatibleWith(other Converter[F]) bool {
	_, ok := other.(PassThrough[F])
	return ok
}

// Func adapts a function on V. Two Func converters are compatible when they
// share a name.
type Func[V, F any] struct {
	name string
	fn   func(V) (F, error)
}

// NewFunc returns a converter named name applying fn.
func NewFunc[V, F any](name string, fn func(V) (F, error)) *Func[V, F] {
	return &Func[V, F]{name: name, fn: fn}
}

// Name returns the converter name.
func (c *Func[V, F]) Name() string { return c.name }

// Convert implements Converter.
func (c *Func[V, F]) Convert(v any) (F, error) {
	in, ok := v.(V)
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %T, want %T", ErrUnsupportedValue, v, in)
	}
	return c.fn(in)
}

// IsCompatibleWith implements Converter.
func (c *Func[V, F]) IsCompatibleWith(other Converter[F]) bool {
	o, ok := other.(*Func[V, F])
	return ok && o.name == c.name
}

// Lenient converts the loosely typed values produced by decoding JSON or
// reading flags: any Go integer or float, json.Number, numeric and RFC 3339
// strings. F must be one of int, int32, int64, float64, bool, string or
// time.Time.
type Lenient[F any] struct{}

// Convert implements Converter.
func (Lenient[F]) Convert(v any) (F, error) {
	var out F
	if f, ok := v.(F); ok {
		return f, nil
	}
	var (
		r   any
		err error
	)
	switch any(out).(type) {
	case int:
		var i int64
		i, err = toInt64(v, math.MinInt, math.MaxInt)
		r = int(i)
	case int32:
		var i int64
		i, err = toInt64(v, math.MinInt32, math.MaxInt32)
		r = int32(i)
	case int64:
		r, err = toInt64(v, math.MinInt64, math.MaxInt64)
	case float64:
		r, err = toFloat64(v)
	case bool:
		r, err = toBool(v)
	case string:
		r, err = toString(v)
	case time.Time:
		r, err = toTime(v)
	default:
		err = fmt.Errorf("%w: no lenient conversion to %T", ErrUnsupportedValue, out)
	}
	if err != nil {
		return out, err
	}
	return r.(F), nil
}

// IsCompatibleWith implements Converter.
func (Lenient[F]) IsCompatibleWith(other Converter[F]) bool {
	_, ok := other.(Lenient[F])
	return ok
}

func toInt64(v any, lo, hi int64) (int64, error) {
	var i int64
	switch x := v.(type) {
	case int:
		i = int64(x)
	case int8:
		i = int64(x)
	case int16:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case uint8:
		i = int64(x)
	case uint16:
		i = int64(x)
	case uint32:
		i = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, x)
		}
		i = int64(x)
	case float32:
		return toInt64(float64(x), lo, hi)
	case float64:
		if x != math.Trunc(x) || x < -(1<<63) || x >= 1<<63 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrOutOfRange, x)
		}
		i = int64(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedValue, x.String())
		}
		i = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedValue, x)
		}
		i = n
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, i, lo, hi)
	}
	return i, nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedValue, x.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedValue, x)
		}
		return f, nil
	}
	i, err := toInt64(v, math.MinInt64, math.MaxInt64)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

func toBool(v any) (bool, error) {
	if s, ok := v.(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrUnsupportedValue, s)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String(), nil
	case []byte:
		return string(x), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedValue, x)
		}
		return t, nil
	case json.Number, int, int64, float64:
		ms, err := toInt64(x, math.MinInt64, math.MaxInt64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}
