package predicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/search"
)

func yearFactory(t *testing.T, opts ...codec.Option) *NumericFactory[int, int32] {
	t.Helper()
	c, err := codec.NewYear(opts...)
	require.NoError(t, err)
	f, err := NewNumericFactory[int, int32](convert.Lenient[int]{}, convert.PassThrough[int]{}, c)
	require.NoError(t, err)
	return f
}

func TestIsDslCompatibleWith(t *testing.T) {
	plain := yearFactory(t)
	plain2 := yearFactory(t)
	withNull := yearFactory(t, codec.WithIndexNullAs(1970))

	assert.True(t, plain.IsDslCompatibleWith(plain2, convert.DslConverterEnabled))
	assert.True(t, plain.IsDslCompatibleWith(plain, convert.DslConverterEnabled))

	// Same raw value type, different null replacement policy.
	assert.False(t, plain.IsDslCompatibleWith(withNull, convert.DslConverterEnabled))
	assert.False(t, withNull.IsDslCompatibleWith(plain, convert.DslConverterEnabled))
	assert.False(t, plain.IsDslCompatibleWith(withNull, convert.DslConverterDisabled))

	intCodec, err := codec.NewInteger()
	require.NoError(t, err)
	ints, err := NewNumericFactory[int32, int32](convert.Lenient[int32]{}, convert.PassThrough[int32]{}, intCodec)
	require.NoError(t, err)
	assert.False(t, plain.IsDslCompatibleWith(ints, convert.DslConverterEnabled))

	sc, err := codec.NewString()
	require.NoError(t, err)
	strs, err := NewStringFactory(convert.Lenient[string]{}, convert.PassThrough[string]{}, sc)
	require.NoError(t, err)
	assert.False(t, plain.IsDslCompatibleWith(strs, convert.DslConverterEnabled))
	assert.False(t, strs.IsDslCompatibleWith(plain, convert.DslConverterEnabled))
}

func TestIsDslCompatibleWith_Converters(t *testing.T) {
	c, err := codec.NewYear()
	require.NoError(t, err)

	parseA := convert.NewFunc("roman", func(string) (int, error) { return 0, nil })
	parseB := convert.NewFunc("hex", func(string) (int, error) { return 0, nil })

	a, err := NewNumericFactory[int, int32](parseA, convert.PassThrough[int]{}, c)
	require.NoError(t, err)
	b, err := NewNumericFactory[int, int32](parseB, convert.PassThrough[int]{}, c)
	require.NoError(t, err)

	assert.False(t, a.IsDslCompatibleWith(b, convert.DslConverterEnabled))
	assert.True(t, a.IsDslCompatibleWith(b, convert.DslConverterDisabled), "raw mode ignores DSL converters")
}

func TestPreconditions(t *testing.T) {
	c, err := codec.NewInteger()
	require.NoError(t, err)

	_, err = NewNumericFactory[int32, int32](nil, convert.PassThrough[int32]{}, c)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
	_, err = NewNumericFactory[int32, int32](convert.PassThrough[int32]{}, nil, c)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
	_, err = NewNumericFactory[int32, int32](convert.PassThrough[int32]{}, convert.PassThrough[int32]{}, nil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
	_, err = NewStringFactory(convert.PassThrough[string]{}, convert.PassThrough[string]{}, nil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)

	var typedNil *codec.Numeric[int32, int32]
	_, err = NewNumericFactory[int32, int32](convert.PassThrough[int32]{}, convert.PassThrough[int32]{}, typedNil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestDslIncompatibilityError(t *testing.T) {
	err := error(&DslIncompatibilityError{Path: "year", Indexes: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrDslIncompatible)
	assert.Contains(t, err.Error(), `"year"`)
	assert.Contains(t, err.Error(), "a, b")
}

type book struct {
	id    string
	year  *int
	genre *string
}

func ptr[T any](v T) *T { return &v }

func indexBooks(t *testing.T, yc codec.Codec[int], gc codec.Codec[string], books ...book) *search.Searcher {
	t.Helper()
	w := index.NewSegmentWriter()
	for _, bk := range books {
		b := document.NewBuilder(bk.id)
		require.NoError(t, yc.AddToDocument(b, "year", bk.year))
		require.NoError(t, gc.AddToDocument(b, "genre", bk.genre))
		d, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, w.Add(d))
	}
	seg, err := w.Flush("_0", index.CompressionNone)
	require.NoError(t, err)
	return search.NewSearcher(index.NewReader("books", index.NewSegmentReader(seg, nil)))
}

func count(t *testing.T, s *search.Searcher, b Builder) int {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	n, err := s.Count(context.Background(), q)
	require.NoError(t, err)
	return n
}

func TestPredicates(t *testing.T) {
	yc, err := codec.NewYear(codec.WithIndexNullAs(0))
	require.NoError(t, err)
	gc, err := codec.NewString(codec.WithNormalizer(codec.LowercaseNormalizer), codec.WithDocValues(codec.DocValuesEnabled))
	require.NoError(t, err)

	years, err := NewNumericFactory[int, int32](convert.Lenient[int]{}, convert.PassThrough[int]{}, yc)
	require.NoError(t, err)
	genres, err := NewStringFactory(convert.Lenient[string]{}, convert.PassThrough[string]{}, gc)
	require.NoError(t, err)

	s := indexBooks(t, yc, gc,
		book{id: "1", year: ptr(1905), genre: ptr("Physics")},
		book{id: "2", year: ptr(1915), genre: ptr("physics")},
		book{id: "3", year: ptr(0), genre: ptr("History")},
		book{id: "4"},
	)

	t.Run("match", func(t *testing.T) {
		m := years.Match("year")
		require.NoError(t, m.Value(1905.0, convert.DslConverterEnabled))
		assert.Equal(t, 1, count(t, s, m))

		m = genres.Match("genre")
		require.NoError(t, m.Value("PHYSICS", convert.DslConverterEnabled))
		assert.Equal(t, 2, count(t, s, m))
	})

	t.Run("match null", func(t *testing.T) {
		m := years.Match("year")
		require.NoError(t, m.Value(nil, convert.DslConverterEnabled))
		assert.Equal(t, 1, count(t, s, m), "only the document without a year")

		m = genres.Match("genre")
		assert.ErrorIs(t, m.Value(nil, convert.DslConverterEnabled), ErrInvalidPredicate)
	})

	t.Run("raw mode", func(t *testing.T) {
		m := years.Match("year")
		assert.Error(t, m.Value(1905.0, convert.DslConverterDisabled))
		require.NoError(t, m.Value(1915, convert.DslConverterDisabled))
		assert.Equal(t, 1, count(t, s, m))
	})

	t.Run("encoding error", func(t *testing.T) {
		m := years.Match("year")
		assert.ErrorIs(t, m.Value(codec.MaxYear+1, convert.DslConverterEnabled), codec.ErrEncoding)
	})

	t.Run("range", func(t *testing.T) {
		r := years.Range("year")
		require.NoError(t, r.Upper(1915, true, convert.DslConverterEnabled))
		assert.Equal(t, 2, count(t, s, r), "0 and 1905, never the null sentinel")

		r = years.Range("year")
		require.NoError(t, r.Lower(1905, false, convert.DslConverterEnabled))
		require.NoError(t, r.Upper(1915, false, convert.DslConverterEnabled))
		assert.Equal(t, 2, count(t, s, r))

		r = years.Range("year")
		require.NoError(t, r.Lower(1905, true, convert.DslConverterEnabled))
		require.NoError(t, r.Upper(1905, false, convert.DslConverterEnabled))
		q, err := r.Build()
		require.NoError(t, err)
		assert.IsType(t, search.MatchNoneQuery{}, q)

		_, err = years.Range("year").Build()
		assert.ErrorIs(t, err, ErrInvalidPredicate)

		r = genres.Range("genre")
		require.NoError(t, r.Lower("h", false, convert.DslConverterEnabled))
		require.NoError(t, r.Upper("physics", true, convert.DslConverterEnabled))
		assert.Equal(t, 1, count(t, s, r))
	})

	t.Run("exists", func(t *testing.T) {
		assert.Equal(t, 4, count(t, s, years.Exists("year")), "nulls are indexed")
		assert.Equal(t, 3, count(t, s, genres.Exists("genre")))
	})

	t.Run("boost", func(t *testing.T) {
		m := genres.Match("genre")
		require.NoError(t, m.Value("physics", convert.DslConverterEnabled))
		m.Boost(2)
		q, err := m.Build()
		require.NoError(t, err)
		assert.Equal(t, search.BoostQuery{Query: search.TermQuery{Field: "genre", Term: "physics"}, Boost: 2}, q)
	})

	t.Run("not searchable", func(t *testing.T) {
		c, err := codec.NewLong(codec.WithIndexing(codec.IndexingDisabled))
		require.NoError(t, err)
		f, err := NewNumericFactory[int64, int64](convert.Lenient[int64]{}, convert.PassThrough[int64]{}, c)
		require.NoError(t, err)
		m := f.Match("n")
		require.NoError(t, m.Value(1, convert.DslConverterEnabled))
		_, err = m.Build()
		assert.ErrorIs(t, err, ErrInvalidPredicate)
	})
}
