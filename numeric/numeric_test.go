package numeric

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/search"
)

func TestSortableFloatOrdering(t *testing.T) {
	values := []float64{math.NaN(), math.Inf(1), 1.5, math.Copysign(0, 1), math.Copysign(0, -1), -1.5, math.Inf(-1), math.SmallestNonzeroFloat64, -math.MaxFloat64}

	bits := make([]int64, len(values))
	for i, v := range values {
		bits[i] = SortableFloat64Bits(v)
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	var sorted []float64
	for _, b := range bits {
		sorted = append(sorted, SortableFloat64(b))
	}

	assert.Equal(t, math.Inf(-1), sorted[0])
	assert.Equal(t, -math.MaxFloat64, sorted[1])
	assert.Equal(t, -1.5, sorted[2])
	assert.True(t, math.Signbit(sorted[3]), "-0 sorts before +0")
	assert.False(t, math.Signbit(sorted[4]))
	assert.Equal(t, math.SmallestNonzeroFloat64, sorted[5])
	assert.Equal(t, 1.5, sorted[6])
	assert.Equal(t, math.Inf(1), sorted[7])
	assert.True(t, math.IsNaN(sorted[8]))

	assert.Equal(t, float32(-2.25), SortableFloat32(SortableFloat32Bits(-2.25)))
	assert.Less(t, SortableFloat32Bits(-1), SortableFloat32Bits(float32(math.Copysign(0, -1))))
}

func TestDomains_Neighbours(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		d := Integer()
		assert.Equal(t, TypeInteger, d.Type())
		assert.Equal(t, int32(4), d.NextValue(3))
		assert.Equal(t, int32(2), d.PreviousValue(3))
		assert.Equal(t, d.MaxValue(), d.NextValue(d.MaxValue()))
		assert.Equal(t, d.MinValue(), d.PreviousValue(d.MinValue()))
	})

	t.Run("long", func(t *testing.T) {
		d := Long()
		assert.Equal(t, int64(math.MaxInt64), d.NextValue(math.MaxInt64))
		assert.Equal(t, int64(-1), d.PreviousValue(0))
	})

	t.Run("float", func(t *testing.T) {
		d := Float()
		assert.Equal(t, math.Nextafter32(1, 2), d.NextValue(1))
		assert.Equal(t, math.Nextafter32(1, 0), d.PreviousValue(1))
		negZero := float32(math.Copysign(0, -1))
		assert.False(t, math.Signbit(float64(d.NextValue(negZero))))
		assert.Equal(t, 1, d.Compare(0, negZero))
	})

	t.Run("double", func(t *testing.T) {
		d := Double()
		assert.Equal(t, math.Nextafter(1, 2), d.NextValue(1))
		assert.Equal(t, -math.SmallestNonzeroFloat64, d.PreviousValue(math.Copysign(0, -1)))
		assert.Equal(t, math.Inf(1), d.NextValue(math.MaxFloat64))
		assert.Equal(t, math.Inf(1), d.NextValue(math.Inf(1)))
		assert.Equal(t, 1, d.Compare(math.NaN(), math.Inf(1)))
	})
}

func TestDomains_EncodingsPreserveOrder(t *testing.T) {
	ints := []int32{math.MinInt32, -7, -1, 0, 1, 42, math.MaxInt32}
	for i := 1; i < len(ints); i++ {
		a, b := Integer().EncodePoint(ints[i-1]), Integer().EncodePoint(ints[i])
		assert.Negative(t, bytesCompare(a, b))
		assert.Less(t, Integer().ToDocValue(ints[i-1]), Integer().ToDocValue(ints[i]))
		assert.Equal(t, ints[i], Integer().DecodePoint(b))
	}

	doubles := []float64{math.Inf(-1), -3.5, math.Copysign(0, -1), 0, 1e-300, 2, math.Inf(1)}
	for i := 1; i < len(doubles); i++ {
		a, b := Double().EncodePoint(doubles[i-1]), Double().EncodePoint(doubles[i])
		assert.Negative(t, bytesCompare(a, b))
		assert.Less(t, Double().ToDocValue(doubles[i-1]), Double().ToDocValue(doubles[i]))
		assert.Equal(t, doubles[i], Double().FromDocValue(Double().ToDocValue(doubles[i])))
	}

	assert.Len(t, Long().EncodePoint(1), Long().PointWidth())
	assert.Len(t, Float().EncodePoint(1), Float().PointWidth())
	assert.Equal(t, float32(-0.5), Float().DecodePoint(Float().EncodePoint(-0.5)))
	assert.Equal(t, int64(-9), Long().DecodePoint(Long().EncodePoint(-9)))
}

func bytesCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func newReader(t *testing.T, values ...int32) *index.Reader {
	t.Helper()
	w := index.NewSegmentWriter()
	for i, v := range values {
		b := document.NewBuilder(string(rune('a' + i)))
		b.AddPoint("n", Integer().EncodePoint(v))
		d, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, w.Add(d))
	}
	seg, err := w.Flush("_0", index.CompressionNone)
	require.NoError(t, err)
	return index.NewReader("numbers", index.NewSegmentReader(seg, nil))
}

func ptr[E Number](v E) *E { return &v }

func TestRangeQuery(t *testing.T) {
	reader := newReader(t, -5, 0, 1, 2, 3, math.MaxInt32)
	s := search.NewSearcher(reader)
	d := Integer()

	tests := []struct {
		name   string
		query  search.Query
		want   int
		isNone bool
	}{
		{"exact", d.ExactQuery("n", 2), 1, false},
		{"exact missing", d.ExactQuery("n", 7), 0, false},
		{"inclusive", d.RangeQuery("n", ptr[int32](0), ptr[int32](2), false, false), 3, false},
		{"exclusive lower", d.RangeQuery("n", ptr[int32](0), ptr[int32](2), true, false), 2, false},
		{"exclusive both", d.RangeQuery("n", ptr[int32](0), ptr[int32](2), true, true), 1, false},
		{"open lower", d.RangeQuery("n", nil, ptr[int32](0), false, false), 2, false},
		{"open upper exclusive lower", d.RangeQuery("n", ptr[int32](2), nil, true, false), 2, false},
		{"unbounded", d.RangeQuery("n", nil, nil, false, false), 6, false},
		{"single point exclusive", d.RangeQuery("n", ptr[int32](1), ptr[int32](1), true, false), 0, true},
		{"inverted", d.RangeQuery("n", ptr[int32](3), ptr[int32](1), false, false), 0, true},
		{"exclusive above max", d.RangeQuery("n", ptr[int32](math.MaxInt32), nil, true, false), 0, true},
		{"exclusive below min", d.RangeQuery("n", nil, ptr[int32](math.MinInt32), false, true), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			_, none := tt.query.(search.MatchNoneQuery)
			assert.Equal(t, tt.isNone, none)
		})
	}
}

func TestRangeQuery_DoubleEdges(t *testing.T) {
	d := Double()
	q := d.RangeQuery("x", ptr(1.0), ptr(math.Nextafter(1, 2)), true, true)
	assert.IsType(t, search.MatchNoneQuery{}, q)

	q = d.RangeQuery("x", ptr(1.0), ptr(math.Nextafter(1, 2)), true, false)
	prq, ok := q.(search.PointRangeQuery)
	require.True(t, ok)
	assert.Equal(t, prq.Lower, prq.Upper)
}
