package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intWorse(a, b int) bool { return a < b }

func TestTopN(t *testing.T) {
	q := NewTopN(3, intWorse)

	_, ok := q.Bottom()
	assert.False(t, ok)

	for _, v := range []int{5, 1, 9, 3, 7} {
		q.Offer(v)
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{9, 7, 5}, q.Sorted())

	bottom, ok := q.Bottom()
	require.True(t, ok)
	assert.Equal(t, 5, bottom)

	assert.False(t, q.Offer(2))
	assert.True(t, q.Offer(6))
	assert.Equal(t, []int{9, 7, 6}, q.Sorted())

	q.Reset()
	assert.Equal(t, 0, q.Len())
}

func TestTopN_Zero(t *testing.T) {
	q := NewTopN(0, intWorse)
	assert.False(t, q.Offer(1))
	assert.Empty(t, q.Sorted())
}

func TestTopN_MatchesSort(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	values := make([]int, 500)
	for i := range values {
		values[i] = r.Intn(1000)
	}

	q := NewTopN(25, intWorse)
	for _, v := range values {
		q.Offer(v)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(values)))
	assert.Equal(t, values[:25], q.Sorted())
}
