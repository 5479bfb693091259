package numeric

import (
	"cmp"
	"fmt"
	"math"

	"github.com/hupe1980/hsearch/search"
)

// Number is the set of encoded types a Domain can handle.
type Number interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// Type identifies a domain.
type Type uint8

const (
	TypeInteger Type = iota + 1
	TypeLong
	TypeFloat
	TypeDouble
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Domain is the total order and encodings of one numeric type.
type Domain[E Number] interface {
	Type() Type

	// Compare returns -1, 0 or +1. Floating point values are ordered by
	// their sortable bits: -0 < +0 and NaN sorts above +Inf.
	Compare(a, b E) int

	MinValue() E
	MaxValue() E

	// PreviousValue returns the largest value below v, or v if v is MinValue.
	PreviousValue(v E) E
	// NextValue returns the smallest value above v, or v if v is MaxValue.
	NextValue(v E) E

	// ToDocValue encodes v so that int64 order matches Compare.
	ToDocValue(v E) int64
	FromDocValue(dv int64) E

	// PointWidth is the length of EncodePoint results.
	PointWidth() int
	// EncodePoint encodes v so that unsigned byte order matches Compare.
	EncodePoint(v E) []byte
	DecodePoint(b []byte) E

	// ExactQuery matches documents with a point of field equal to v.
	ExactQuery(field string, v E) search.Query
	// RangeQuery matches documents with a point of field between lower and
	// upper. A nil bound is open. Exclusive bounds are made inclusive with
	// NextValue and PreviousValue; a range left empty matches nothing.
	RangeQuery(field string, lower, upper *E, excludeLower, excludeUpper bool) search.Query
}

var (
	integerDomain Domain[int32]   = intDomain{}
	longDomain    Domain[int64]   = int64Domain{}
	floatDomain   Domain[float32] = float32Domain{}
	doubleDomain  Domain[float64] = float64Domain{}
)

// Integer returns the int32 domain.
func Integer() Domain[int32] { return integerDomain }

// Long returns the int64 domain.
func Long() Domain[int64] { return longDomain }

// Float returns the float32 domain.
func Float() Domain[float32] { return floatDomain }

// Double returns the float64 domain.
func Double() Domain[float64] { return doubleDomain }

type intDomain struct{}

func (intDomain) Type() Type                 { return TypeInteger }
func (intDomain) Compare(a, b int32) int     { return cmp.Compare(a, b) }
func (intDomain) MinValue() int32            { return math.MinInt32 }
func (intDomain) MaxValue() int32            { return math.MaxInt32 }
func (intDomain) ToDocValue(v int32) int64   { return int64(v) }
func (intDomain) FromDocValue(v int64) int32 { return int32(v) }
func (intDomain) PointWidth() int            { return 4 }
func (intDomain) EncodePoint(v int32) []byte { return encodeInt32Point(v) }
func (intDomain) DecodePoint(b []byte) int32 { return decodeInt32Point(b) }

func (intDomain) PreviousValue(v int32) int32 {
	if v == math.MinInt32 {
		return v
	}
	return v - 1
}

func (intDomain) NextValue(v int32) int32 {
	if v == math.MaxInt32 {
		return v
	}
	return v + 1
}

func (d intDomain) ExactQuery(field string, v int32) search.Query {
	return exactQuery[int32](d, field, v)
}

func (d intDomain) RangeQuery(field string, lower, upper *int32, excludeLower, excludeUpper bool) search.Query {
	return rangeQuery[int32](d, field, lower, upper, excludeLower, excludeUpper)
}

type int64Domain struct{}

func (int64Domain) Type() Type                 { return TypeLong }
func (int64Domain) Compare(a, b int64) int     { return cmp.Compare(a, b) }
func (int64Domain) MinValue() int64            { return math.MinInt64 }
func (int64Domain) MaxValue() int64            { return math.MaxInt64 }
func (int64Domain) ToDocValue(v int64) int64   { return v }
func (int64Domain) FromDocValue(v int64) int64 { return v }
func (int64Domain) PointWidth() int            { return 8 }
func (int64Domain) EncodePoint(v int64) []byte { return encodeInt64Point(v) }
func (int64Domain) DecodePoint(b []byte) int64 { return decodeInt64Point(b) }

func (int64Domain) PreviousValue(v int64) int64 {
	if v == math.MinInt64 {
		return v
	}
	return v - 1
}

func (int64Domain) NextValue(v int64) int64 {
	if v == math.MaxInt64 {
		return v
	}
	return v + 1
}

func (d int64Domain) ExactQuery(field string, v int64) search.Query {
	return exactQuery[int64](d, field, v)
}

func (d int64Domain) RangeQuery(field string, lower, upper *int64, excludeLower, excludeUpper bool) search.Query {
	return rangeQuery[int64](d, field, lower, upper, excludeLower, excludeUpper)
}

// float32Domain spans [-Inf, +Inf]; NaN is encodable but outside the sentinels.
type float32Domain struct{}

func (float32Domain) Type() Type { return TypeFloat }

func (float32Domain) Compare(a, b float32) int {
	return cmp.Compare(SortableFloat32Bits(a), SortableFloat32Bits(b))
}

func (float32Domain) MinValue() float32 { return float32(math.Inf(-1)) }
func (float32Domain) MaxValue() float32 { return float32(math.Inf(1)) }

func (d float32Domain) PreviousValue(v float32) float32 {
	if d.Compare(v, d.MinValue()) <= 0 {
		return v
	}
	return SortableFloat32(SortableFloat32Bits(v) - 1)
}

func (d float32Domain) NextValue(v float32) float32 {
	if d.Compare(v, d.MaxValue()) >= 0 {
		return v
	}
	return SortableFloat32(SortableFloat32Bits(v) + 1)
}

func (float32Domain) ToDocValue(v float32) int64   { return int64(SortableFloat32Bits(v)) }
func (float32Domain) FromDocValue(v int64) float32 { return SortableFloat32(int32(v)) }
func (float32Domain) PointWidth() int              { return 4 }

func (float32Domain) EncodePoint(v float32) []byte {
	return encodeInt32Point(SortableFloat32Bits(v))
}

func (float32Domain) DecodePoint(b []byte) float32 {
	return SortableFloat32(decodeInt32Point(b))
}

func (d float32Domain) ExactQuery(field string, v float32) search.Query {
	return exactQuery[float32](d, field, v)
}

func (d float32Domain) RangeQuery(field string, lower, upper *float32, excludeLower, excludeUpper bool) search.Query {
	return rangeQuery[float32](d, field, lower, upper, excludeLower, excludeUpper)
}

type float64Domain struct{}

func (float64Domain) Type() Type { return TypeDouble }

func (float64Domain) Compare(a, b float64) int {
	return cmp.Compare(SortableFloat64Bits(a), SortableFloat64Bits(b))
}

func (float64Domain) MinValue() float64 { return math.Inf(-1) }
func (float64Domain) MaxValue() float64 { return math.Inf(1) }

func (d float64Domain) PreviousValue(v float64) float64 {
	if d.Compare(v, d.MinValue()) <= 0 {
		return v
	}
	return SortableFloat64(SortableFloat64Bits(v) - 1)
}

func (d float64Domain) NextValue(v float64) float64 {
	if d.Compare(v, d.MaxValue()) >= 0 {
		return v
	}
	return SortableFloat64(SortableFloat64Bits(v) + 1)
}

func (float64Domain) ToDocValue(v float64) int64   { return SortableFloat64Bits(v) }
func (float64Domain) FromDocValue(v int64) float64 { return SortableFloat64(v) }
func (float64Domain) PointWidth() int              { return 8 }

func (float64Domain) EncodePoint(v float64) []byte {
	return encodeInt64Point(SortableFloat64Bits(v))
}

func (float64Domain) DecodePoint(b []byte) float64 {
	return SortableFloat64(decodeInt64Point(b))
}

func (d float64Domain) ExactQuery(field string, v float64) search.Query {
	return exactQuery[float64](d, field, v)
}

func (d float64Domain) RangeQuery(field string, lower, upper *float64, excludeLower, excludeUpper bool) search.Query {
	return rangeQuery[float64](d, field, lower, upper, excludeLower, excludeUpper)
}
