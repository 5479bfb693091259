package convert

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDslConverter(t *testing.T) {
	var zero DslConverter
	assert.True(t, zero.IsEnabled())
	assert.False(t, DslConverterDisabled.IsEnabled())
	assert.Equal(t, "disabled", DslConverterDisabled.String())
}

func TestPassThrough(t *testing.T) {
	c := PassThrough[int32]{}
	v, err := c.Convert(int32(3))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)

	_, err = c.Convert(3)
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	assert.True(t, c.IsCompatibleWith(PassThrough[int32]{}))
	assert.False(t, c.IsCompatibleWith(Lenient[int32]{}))
}

func TestFunc(t *testing.T) {
	parse := func(s string) (int, error) { return strconv.Atoi(s) }
	a := NewFunc("atoi", parse)
	b := NewFunc("atoi", parse)
	other := NewFunc("other", parse)

	v, err := a.Convert("42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = a.Convert(42)
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	assert.True(t, a.IsCompatibleWith(b))
	assert.True(t, b.IsCompatibleWith(a))
	assert.False(t, a.IsCompatibleWith(other))
	assert.False(t, a.IsCompatibleWith(PassThrough[int]{}))
}

func TestLenient(t *testing.T) {
	t.Run("integers", func(t *testing.T) {
		c := Lenient[int32]{}
		for _, in := range []any{int32(7), 7, int64(7), 7.0, json.Number("7"), " 7 "} {
			v, err := c.Convert(in)
			require.NoError(t, err, "%T", in)
			assert.Equal(t, int32(7), v)
		}

		_, err := c.Convert(int64(math.MaxInt32) + 1)
		assert.ErrorIs(t, err, ErrOutOfRange)
		_, err = c.Convert(7.5)
		assert.ErrorIs(t, err, ErrOutOfRange)
		_, err = c.Convert(true)
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})

	t.Run("year", func(t *testing.T) {
		v, err := Lenient[int]{}.Convert(1905.0)
		require.NoError(t, err)
		assert.Equal(t, 1905, v)
	})

	t.Run("float", func(t *testing.T) {
		v, err := Lenient[float64]{}.Convert(json.Number("2.5"))
		require.NoError(t, err)
		assert.Equal(t, 2.5, v)

		v, err = Lenient[float64]{}.Convert(3)
		require.NoError(t, err)
		assert.Equal(t, 3.0, v)
	})

	t.Run("bool", func(t *testing.T) {
		v, err := Lenient[bool]{}.Convert("true")
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("time", func(t *testing.T) {
		want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		v, err := Lenient[time.Time]{}.Convert("2020-01-02T03:04:05Z")
		require.NoError(t, err)
		assert.True(t, want.Equal(v))

		v, err = Lenient[time.Time]{}.Convert(float64(want.UnixMilli()))
		require.NoError(t, err)
		assert.True(t, want.Equal(v))

		_, err = Lenient[time.Time]{}.Convert("yesterday")
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})

	t.Run("unsupported target", func(t *testing.T) {
		_, err := Lenient[uint8]{}.Convert(1)
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})
}
