// Package queue provides a bounded priority queue.
package queue

// TopN keeps the n best items offered to it. Items are ordered by worse:
// worse(a, b) reports whether a ranks below b.
type TopN[T any] struct {
	n     int
	worse func(a, b T) bool
	items []T // min-heap under worse: items[0] is evicted first
}

// NewTopN returns an empty queue keeping at most n items.
func NewTopN[T any](n int, worse func(a, b T) bool) *TopN[T] {
	if n < 0 {
		n = 0
	}
	return &TopN[T]{n: n, worse: worse, items: make([]T, 0, min(n, 1024))}
}

// Len returns the number of kept items.
func (q *TopN[T]) Len() int { return len(q.items) }

// Bottom returns the item that would be evicted next.
func (q *TopN[T]) Bottom() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Offer adds item if the queue is not full or item beats the current
// bottom. It reports whether item was kept.
func (q *TopN[T]) Offer(item T) bool {
	if q.n == 0 {
		return false
	}
	if len(q.items) < q.n {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !q.worse(q.items[0], item) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Sorted returns the kept items best first. The queue is unchanged.
func (q *TopN[T]) Sorted() []T {
	h := &TopN[T]{n: q.n, worse: q.worse, items: append([]T(nil), q.items...)}
	out := make([]T, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}

// Reset drops every item.
func (q *TopN[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
}

func (q *TopN[T]) pop() T {
	n := len(q.items) - 1
	root := q.items[0]
	q.items[0] = q.items[n]
	var zero T
	q.items[n] = zero
	q.items = q.items[:n]
	if n > 0 {
		q.siftDown(0)
	}
	return root
}

func (q *TopN[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopN[T]) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.worse(q.items[r], q.items[l]) {
			best = r
		}
		if !q.worse(q.items[best], q.items[i]) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
