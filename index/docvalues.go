package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// NumericDocValues iterates a single-valued numeric column.
//
// Documents must be visited in non-decreasing order.
type NumericDocValues interface {
	// AdvanceExact positions on doc and reports whether it has a value.
	AdvanceExact(doc int) (bool, error)
	// Value returns the value of the current document.
	Value() int64
}

// BinaryDocValues iterates a single-valued binary column.
//
// Documents must be visited in non-decreasing order.
type BinaryDocValues interface {
	// AdvanceExact positions on doc and reports whether it has a value.
	AdvanceExact(doc int) (bool, error)
	// Value returns the value of the current document. The slice is shared
	// with the segment and must not be modified.
	Value() []byte
}

type numericColumn struct {
	docs   *roaring.Bitmap
	values []int64 // ordered by doc
}

func (c *numericColumn) lookup(doc uint32) (int64, bool) {
	if !c.docs.Contains(doc) {
		return 0, false
	}
	return c.values[c.docs.Rank(doc)-1], true
}

type binaryColumn struct {
	docs   *roaring.Bitmap
	values [][]byte // ordered by doc
}

func (c *binaryColumn) lookup(doc uint32) ([]byte, bool) {
	if !c.docs.Contains(doc) {
		return nil, false
	}
	return c.values[c.docs.Rank(doc)-1], true
}

// cursor enforces the forward-only contract shared by both iterators.
type cursor struct {
	maxDoc int
	last   int
}

func (c *cursor) advance(doc int) error {
	if doc < 0 || doc >= c.maxDoc {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrDocOutOfRange, doc, c.maxDoc)
	}
	if doc < c.last {
		return fmt.Errorf("%w: %d after %d", ErrDocValuesOrder, doc, c.last)
	}
	c.last = doc
	return nil
}

type numericIterator struct {
	cursor
	col   *numericColumn // nil for a missing field
	value int64
}

func (it *numericIterator) AdvanceExact(doc int) (bool, error) {
	if err := it.advance(doc); err != nil {
		return false, err
	}
	if it.col == nil {
		return false, nil
	}
	v, ok := it.col.lookup(uint32(doc))
	it.value = v
	return ok, nil
}

func (it *numericIterator) Value() int64 { return it.value }

type binaryIterator struct {
	cursor
	col   *binaryColumn // nil for a missing field
	value []byte
}

func (it *binaryIterator) AdvanceExact(doc int) (bool, error) {
	if err := it.advance(doc); err != nil {
		return false, err
	}
	if it.col == nil {
		return false, nil
	}
	v, ok := it.col.lookup(uint32(doc))
	it.value = v
	return ok, nil
}

func (it *binaryIterator) Value() []byte { return it.value }
