package index

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/hsearch/document"
)

const (
	// storedBlockDocs is the number of documents per stored-fields block.
	storedBlockDocs = 128

	storedCacheBlocks = 8
)

type termColumn struct {
	terms    []string // sorted
	postings []*roaring.Bitmap
}

type pointColumn struct {
	width  int
	values []byte   // len(docs)*width bytes, sorted by value then doc
	docs   []uint32 // parallel to values
}

func (c *pointColumn) value(i int) []byte {
	return c.values[i*c.width : (i+1)*c.width]
}

// Segment is an immutable, self-contained slice of an index.
// It is safe for concurrent use.
type Segment struct {
	name        string
	maxDoc      int
	compression Compression

	storedBlocks [][]byte
	storedCache  *lru.Cache[int, [][]document.StoredField]

	numeric    map[string]*numericColumn
	binary     map[string]*binaryColumn
	terms      map[string]*termColumn
	points     map[string]*pointColumn
	fieldNames map[string]*roaring.Bitmap
}

func newSegment(name string, maxDoc int, c Compression) *Segment {
	cache, _ := lru.New[int, [][]document.StoredField](storedCacheBlocks)
	return &Segment{
		name:        name,
		maxDoc:      maxDoc,
		compression: c,
		storedCache: cache,
		numeric:     make(map[string]*numericColumn),
		binary:      make(map[string]*binaryColumn),
		terms:       make(map[string]*termColumn),
		points:      make(map[string]*pointColumn),
		fieldNames:  make(map[string]*roaring.Bitmap),
	}
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// MaxDoc returns one more than the largest document number.
func (s *Segment) MaxDoc() int { return s.maxDoc }

// Compression returns the stored-fields compression.
func (s *Segment) Compression() Compression { return s.compression }

// NumericDocValues returns a fresh iterator over a numeric column.
// A missing field yields an iterator without values.
func (s *Segment) NumericDocValues(field string) NumericDocValues {
	return &numericIterator{cursor: cursor{maxDoc: s.maxDoc, last: -1}, col: s.numeric[field]}
}

// BinaryDocValues returns a fresh iterator over a binary column.
// A missing field yields an iterator without values.
func (s *Segment) BinaryDocValues(field string) BinaryDocValues {
	return &binaryIterator{cursor: cursor{maxDoc: s.maxDoc, last: -1}, col: s.binary[field]}
}

// DocsWithValue returns the documents having a numeric or binary doc value
// for field. The bitmap must not be modified.
func (s *Segment) DocsWithValue(field string) *roaring.Bitmap {
	if c, ok := s.numeric[field]; ok {
		return c.docs
	}
	if c, ok := s.binary[field]; ok {
		return c.docs
	}
	return roaring.New()
}

// Document returns the stored fields of doc.
func (s *Segment) Document(doc int) ([]document.StoredField, error) {
	if doc < 0 || doc >= s.maxDoc {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrDocOutOfRange, doc, s.maxDoc)
	}
	blk := doc / storedBlockDocs
	docs, ok := s.storedCache.Get(blk)
	if !ok {
		raw, err := decompressBlock(s.storedBlocks[blk], s.compression)
		if err != nil {
			return nil, &CorruptSegmentError{Name: s.name, Reason: fmt.Sprintf("stored block %d", blk), cause: err}
		}
		if docs, err = decodeStoredBlock(raw); err != nil {
			return nil, &CorruptSegmentError{Name: s.name, Reason: fmt.Sprintf("stored block %d", blk), cause: err}
		}
		s.storedCache.Add(blk, docs)
	}
	i := doc % storedBlockDocs
	if i >= len(docs) {
		return nil, &CorruptSegmentError{Name: s.name, Reason: fmt.Sprintf("stored block %d too short", blk)}
	}
	return docs[i], nil
}

// Postings returns the documents indexed with term in field, or nil.
// The bitmap must not be modified.
func (s *Segment) Postings(field, term string) *roaring.Bitmap {
	c, ok := s.terms[field]
	if !ok {
		return nil
	}
	i := sort.SearchStrings(c.terms, term)
	if i < len(c.terms) && c.terms[i] == term {
		return c.postings[i]
	}
	return nil
}

// Terms returns the sorted terms of field. The slice must not be modified.
func (s *Segment) Terms(field string) []string {
	if c, ok := s.terms[field]; ok {
		return c.terms
	}
	return nil
}

// PointWidth returns the encoded width of field's points, or 0.
func (s *Segment) PointWidth(field string) int {
	if c, ok := s.points[field]; ok {
		return c.width
	}
	return 0
}

// PointRange returns the documents with a point of field in [lower, upper].
// A nil bound is open.
func (s *Segment) PointRange(field string, lower, upper []byte) (*roaring.Bitmap, error) {
	out := roaring.New()
	c, ok := s.points[field]
	if !ok {
		return out, nil
	}
	if (lower != nil && len(lower) != c.width) || (upper != nil && len(upper) != c.width) {
		return nil, fmt.Errorf("index: point bounds for %q must be %d bytes", field, c.width)
	}

	n := len(c.docs)
	from := 0
	if lower != nil {
		from = sort.Search(n, func(i int) bool { return bytes.Compare(c.value(i), lower) >= 0 })
	}
	to := n
	if upper != nil {
		to = sort.Search(n, func(i int) bool { return bytes.Compare(c.value(i), upper) > 0 })
	}
	if from < to {
		out.AddMany(c.docs[from:to])
	}
	return out, nil
}

// FieldNames returns the documents recorded as having a value for field.
// The bitmap must not be modified.
func (s *Segment) FieldNames(field string) *roaring.Bitmap {
	if bm, ok := s.fieldNames[field]; ok {
		return bm
	}
	return roaring.New()
}

// SegmentReader is a segment plus the deletions visible to one reader.
type SegmentReader struct {
	*Segment
	deleted *roaring.Bitmap // nil if none
}

// NewSegmentReader returns a reader over seg hiding the deleted documents.
// The bitmap is owned by the reader afterwards.
func NewSegmentReader(seg *Segment, deleted *roaring.Bitmap) *SegmentReader {
	if deleted != nil && deleted.IsEmpty() {
		deleted = nil
	}
	return &SegmentReader{Segment: seg, deleted: deleted}
}

// IsLive reports whether doc is not deleted.
func (r *SegmentReader) IsLive(doc int) bool {
	return r.deleted == nil || !r.deleted.Contains(uint32(doc))
}

// NumDocs returns the number of live documents.
func (r *SegmentReader) NumDocs() int {
	if r.deleted == nil {
		return r.maxDoc
	}
	return r.maxDoc - int(r.deleted.GetCardinality())
}

// LiveDocs returns a new bitmap of the live documents.
func (r *SegmentReader) LiveDocs() *roaring.Bitmap {
	live := roaring.New()
	live.AddRange(0, uint64(r.maxDoc))
	if r.deleted != nil {
		live.AndNot(r.deleted)
	}
	return live
}

// Deleted returns a copy of the deleted documents.
func (r *SegmentReader) Deleted() *roaring.Bitmap {
	if r.deleted == nil {
		return roaring.New()
	}
	return r.deleted.Clone()
}
