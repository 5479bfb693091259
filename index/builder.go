package index

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/hsearch/document"
)

type pointEntry struct {
	value []byte
	doc   uint32
}

type pointBuffer struct {
	width   int
	entries []pointEntry
}

// segmentBuilder accumulates columns for a segment under construction.
// Document numbers must be added in increasing order per column.
type segmentBuilder struct {
	maxDoc     int
	stored     [][]document.StoredField
	numeric    map[string]*numericColumn
	binary     map[string]*binaryColumn
	terms      map[string]map[string]*roaring.Bitmap
	points     map[string]*pointBuffer
	fieldNames map[string]*roaring.Bitmap
}

func newSegmentBuilder() *segmentBuilder {
	return &segmentBuilder{
		numeric:    make(map[string]*numericColumn),
		binary:     make(map[string]*binaryColumn),
		terms:      make(map[string]map[string]*roaring.Bitmap),
		points:     make(map[string]*pointBuffer),
		fieldNames: make(map[string]*roaring.Bitmap),
	}
}

func (b *segmentBuilder) newDoc(stored []document.StoredField) uint32 {
	doc := uint32(b.maxDoc)
	b.maxDoc++
	b.stored = append(b.stored, stored)
	return doc
}

func (b *segmentBuilder) addNumeric(field string, doc uint32, v int64) {
	c, ok := b.numeric[field]
	if !ok {
		c = &numericColumn{docs: roaring.New()}
		b.numeric[field] = c
	}
	c.docs.Add(doc)
	c.values = append(c.values, v)
}

func (b *segmentBuilder) addBinary(field string, doc uint32, v []byte) {
	c, ok := b.binary[field]
	if !ok {
		c = &binaryColumn{docs: roaring.New()}
		b.binary[field] = c
	}
	c.docs.Add(doc)
	c.values = append(c.values, v)
}

func (b *segmentBuilder) addTerm(field, term string, doc uint32) {
	f, ok := b.terms[field]
	if !ok {
		f = make(map[string]*roaring.Bitmap)
		b.terms[field] = f
	}
	bm, ok := f[term]
	if !ok {
		bm = roaring.New()
		f[term] = bm
	}
	bm.Add(doc)
}

func (b *segmentBuilder) checkPointWidth(field string, width int) error {
	if width == 0 {
		return fmt.Errorf("index: empty point for %q", field)
	}
	if p, ok := b.points[field]; ok && p.width != width {
		return fmt.Errorf("index: point width of %q is %d, got %d", field, p.width, width)
	}
	return nil
}

func (b *segmentBuilder) addPoint(field string, value []byte, doc uint32) {
	p, ok := b.points[field]
	if !ok {
		p = &pointBuffer{width: len(value)}
		b.points[field] = p
	}
	p.entries = append(p.entries, pointEntry{value: value, doc: doc})
}

func (b *segmentBuilder) addFieldName(field string, doc uint32) {
	bm, ok := b.fieldNames[field]
	if !ok {
		bm = roaring.New()
		b.fieldNames[field] = bm
	}
	bm.Add(doc)
}

func (b *segmentBuilder) addDocument(d document.Document) error {
	for field, values := range d.Points {
		for _, v := range values {
			if err := b.checkPointWidth(field, len(v)); err != nil {
				return err
			}
		}
		if len(values) > 1 {
			for _, v := range values[1:] {
				if len(v) != len(values[0]) {
					return fmt.Errorf("index: mixed point widths for %q", field)
				}
			}
		}
	}

	doc := b.newDoc(d.Stored)
	for field, v := range d.NumericDocValues {
		b.addNumeric(field, doc, v)
	}
	for field, v := range d.BinaryDocValues {
		b.addBinary(field, doc, v)
	}
	for field, terms := range d.Terms {
		for _, t := range terms {
			b.addTerm(field, t, doc)
		}
	}
	for field, values := range d.Points {
		for _, v := range values {
			b.addPoint(field, v, doc)
		}
	}
	for _, field := range d.FieldNames {
		b.addFieldName(field, doc)
	}
	return nil
}

func (b *segmentBuilder) build(name string, c Compression) (*Segment, error) {
	s := newSegment(name, b.maxDoc, c)

	for start := 0; start < len(b.stored); start += storedBlockDocs {
		end := min(start+storedBlockDocs, len(b.stored))
		block, err := compressBlock(encodeStoredBlock(b.stored[start:end]), c)
		if err != nil {
			return nil, fmt.Errorf("index: compress stored block: %w", err)
		}
		s.storedBlocks = append(s.storedBlocks, block)
	}

	for field, col := range b.numeric {
		col.docs.RunOptimize()
		s.numeric[field] = col
	}
	for field, col := range b.binary {
		col.docs.RunOptimize()
		s.binary[field] = col
	}
	for field, byTerm := range b.terms {
		tc := &termColumn{terms: make([]string, 0, len(byTerm))}
		for t := range byTerm {
			tc.terms = append(tc.terms, t)
		}
		sort.Strings(tc.terms)
		for _, t := range tc.terms {
			bm := byTerm[t]
			bm.RunOptimize()
			tc.postings = append(tc.postings, bm)
		}
		s.terms[field] = tc
	}
	for field, p := range b.points {
		sort.Slice(p.entries, func(i, j int) bool {
			if c := bytes.Compare(p.entries[i].value, p.entries[j].value); c != 0 {
				return c < 0
			}
			return p.entries[i].doc < p.entries[j].doc
		})
		pc := &pointColumn{
			width:  p.width,
			values: make([]byte, 0, len(p.entries)*p.width),
			docs:   make([]uint32, 0, len(p.entries)),
		}
		for _, e := range p.entries {
			pc.values = append(pc.values, e.value...)
			pc.docs = append(pc.docs, e.doc)
		}
		s.points[field] = pc
	}
	for field, bm := range b.fieldNames {
		bm.RunOptimize()
		s.fieldNames[field] = bm
	}
	return s, nil
}

// SegmentWriter buffers documents until they are flushed into a segment.
// It is not safe for concurrent use.
type SegmentWriter struct {
	docs []document.Document
	ids  map[string]int // id -> index in docs
}

// NewSegmentWriter creates an empty writer.
func NewSegmentWriter() *SegmentWriter {
	return &SegmentWriter{ids: make(map[string]int)}
}

// Add buffers a document. Ids must be unique within the buffer.
func (w *SegmentWriter) Add(d document.Document) error {
	if d.ID == "" {
		return document.ErrMissingID
	}
	if _, ok := w.ids[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	w.ids[d.ID] = len(w.docs)
	w.docs = append(w.docs, d)
	return nil
}

// Delete drops the buffered document with id and reports whether it existed.
func (w *SegmentWriter) Delete(id string) bool {
	i, ok := w.ids[id]
	if !ok {
		return false
	}
	delete(w.ids, id)
	w.docs[i] = document.Document{}
	return true
}

// NumDocs returns the number of buffered documents.
func (w *SegmentWriter) NumDocs() int { return len(w.ids) }

// Flush builds a segment from the buffered documents, in insertion order, and
// resets the writer. It returns nil if nothing is buffered.
func (w *SegmentWriter) Flush(name string, c Compression) (*Segment, error) {
	if len(w.ids) == 0 {
		w.docs, w.ids = nil, make(map[string]int)
		return nil, nil
	}
	b := newSegmentBuilder()
	for _, d := range w.docs {
		if d.ID == "" {
			continue
		}
		if err := b.addDocument(d); err != nil {
			return nil, fmt.Errorf("index: document %s: %w", d.ID, err)
		}
	}
	seg, err := b.build(name, c)
	if err != nil {
		return nil, err
	}
	w.docs, w.ids = nil, make(map[string]int)
	return seg, nil
}

// mergeSegments rewrites the live documents of readers, in order, into one
// segment.
func mergeSegments(name string, readers []*SegmentReader, c Compression) (*Segment, error) {
	b := newSegmentBuilder()

	remaps := make([][]int64, len(readers))
	for i, r := range readers {
		remap := make([]int64, r.maxDoc)
		for doc := 0; doc < r.maxDoc; doc++ {
			if !r.IsLive(doc) {
				remap[doc] = -1
				continue
			}
			stored, err := r.Document(doc)
			if err != nil {
				return nil, err
			}
			remap[doc] = int64(b.newDoc(stored))
		}
		remaps[i] = remap
	}

	// Columns are appended reader by reader and doc by doc, so every column
	// stays ordered by its new document numbers.
	for i, r := range readers {
		remap := remaps[i]
		mapped := func(doc uint32) (uint32, bool) {
			n := remap[doc]
			return uint32(n), n >= 0
		}

		for _, field := range sortedKeys(r.numeric) {
			col := r.numeric[field]
			it := col.docs.Iterator()
			for j := 0; it.HasNext(); j++ {
				if doc, ok := mapped(it.Next()); ok {
					b.addNumeric(field, doc, col.values[j])
				}
			}
		}
		for _, field := range sortedKeys(r.binary) {
			col := r.binary[field]
			it := col.docs.Iterator()
			for j := 0; it.HasNext(); j++ {
				if doc, ok := mapped(it.Next()); ok {
					b.addBinary(field, doc, col.values[j])
				}
			}
		}
		for field, tc := range r.terms {
			for j, term := range tc.terms {
				it := tc.postings[j].Iterator()
				for it.HasNext() {
					if doc, ok := mapped(it.Next()); ok {
						b.addTerm(field, term, doc)
					}
				}
			}
		}
		for field, pc := range r.points {
			if err := b.checkPointWidth(field, pc.width); err != nil {
				return nil, err
			}
			for j, d := range pc.docs {
				if doc, ok := mapped(d); ok {
					b.addPoint(field, pc.value(j), doc)
				}
			}
		}
		for field, bm := range r.fieldNames {
			it := bm.Iterator()
			for it.HasNext() {
				if doc, ok := mapped(it.Next()); ok {
					b.addFieldName(field, doc)
				}
			}
		}
	}
	return b.build(name, c)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
