package index

import "fmt"

// LeafContext identifies one segment within a Reader.
type LeafContext struct {
	// Ord is the position of the leaf in Reader.Leaves.
	Ord int
	// DocBase is added to segment-local document numbers to obtain global ones.
	DocBase int
	Reader  *SegmentReader
}

// MetadataResolver maps a leaf to the name of the index it belongs to.
type MetadataResolver interface {
	ResolveIndexName(leaf LeafContext) (string, error)
}

// Reader is an immutable point-in-time view over ordered segments of one or
// more indexes. It is safe for concurrent use.
type Reader struct {
	leaves     []LeafContext
	leafIndex  []string // index name per leaf ord
	indexNames []string
	maxDoc     int
}

// NewReader returns a reader over the segments of the index indexName.
func NewReader(indexName string, segments ...*SegmentReader) *Reader {
	r := &Reader{indexNames: []string{indexName}}
	for _, s := range segments {
		r.appendLeaf(indexName, s)
	}
	return r
}

// NewMultiReader concatenates readers. Leaves keep the order of readers and
// are renumbered; each remembers the index of the reader it came from.
func NewMultiReader(readers ...*Reader) *Reader {
	r := &Reader{}
	seen := make(map[string]struct{})
	for _, sub := range readers {
		for _, name := range sub.indexNames {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				r.indexNames = append(r.indexNames, name)
			}
		}
		for i, leaf := range sub.leaves {
			r.appendLeaf(sub.leafIndex[i], leaf.Reader)
		}
	}
	return r
}

func (r *Reader) appendLeaf(indexName string, s *SegmentReader) {
	r.leaves = append(r.leaves, LeafContext{Ord: len(r.leaves), DocBase: r.maxDoc, Reader: s})
	r.leafIndex = append(r.leafIndex, indexName)
	r.maxDoc += s.MaxDoc()
}

// Leaves returns the leaves in document order. The slice must not be modified.
func (r *Reader) Leaves() []LeafContext { return r.leaves }

// MaxDoc returns the number of global document numbers.
func (r *Reader) MaxDoc() int { return r.maxDoc }

// NumDocs returns the number of live documents.
func (r *Reader) NumDocs() int {
	n := 0
	for _, l := range r.leaves {
		n += l.Reader.NumDocs()
	}
	return n
}

// IndexNames returns the distinct index names in leaf order.
func (r *Reader) IndexNames() []string { return r.indexNames }

// ResolveIndexName implements MetadataResolver.
func (r *Reader) ResolveIndexName(leaf LeafContext) (string, error) {
	segment := ""
	if leaf.Reader != nil {
		segment = leaf.Reader.Name()
	}
	if leaf.Ord < 0 || leaf.Ord >= len(r.leaves) {
		return "", &SegmentResolutionError{Ord: leaf.Ord, Segment: segment,
			cause: fmt.Errorf("reader has %d leaves", len(r.leaves))}
	}
	if r.leaves[leaf.Ord].Reader != leaf.Reader {
		return "", &SegmentResolutionError{Ord: leaf.Ord, Segment: segment,
			cause: fmt.Errorf("leaf does not belong to this reader")}
	}
	return r.leafIndex[leaf.Ord], nil
}

// LeafFor returns the leaf containing the global document doc and the
// segment-local document number.
func (r *Reader) LeafFor(doc int) (LeafContext, int, bool) {
	if doc < 0 || doc >= r.maxDoc {
		return LeafContext{}, 0, false
	}
	lo, hi := 0, len(r.leaves)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.leaves[mid].DocBase <= doc {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	leaf := r.leaves[lo]
	return leaf, doc - leaf.DocBase, true
}
