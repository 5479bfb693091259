package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/internal/hash"
)

// Segment file layout (integers are uvarints unless noted):
//
//	magic "HSSG" | version u8 | compression u8 | maxDoc | blockDocs
//	stored:      nBlocks, { len, block }
//	numeric:     nFields, { name, bitmap, { varint value } }
//	binary:      nFields, { name, bitmap, { len, value } }
//	terms:       nFields, { name, nTerms, { term, bitmap } }
//	points:      nFields, { name, width, n, n*width bytes, { doc } }
//	field names: nFields, { name, bitmap }
//	crc32c u32 (little endian)
//
// Bitmaps use the portable roaring serialization, length prefixed.
const (
	segmentMagic   = "HSSG"
	segmentVersion = 1

	// SegmentExtension is the file suffix of persisted segments.
	SegmentExtension = ".hss"
	// LiveDocsExtension is the file suffix of persisted deletions.
	LiveDocsExtension = ".del"
)

var errTruncated = errors.New("truncated")

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) uvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }

func (e *encoder) varint(v int64) { e.buf = binary.AppendVarint(e.buf, v) }

func (e *encoder) u8(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) raw(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) blob(b []byte) {
	e.uvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) {
	e.uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) bitmap(bm *roaring.Bitmap) {
	if e.err != nil {
		return
	}
	b, err := bm.ToBytes()
	if err != nil {
		e.err = err
		return
	}
	e.blob(b)
}

// decoder reads what encoder wrote. The first failure sticks; later reads
// return zero values. Returned slices alias the input.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("offset %d: %w", d.off, err)
	}
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.fail(errTruncated)
		return 0
	}
	d.off += n
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf[d.off:])
	if n <= 0 {
		d.fail(errTruncated)
		return 0
	}
	d.off += n
	return v
}

// count reads a length and checks that at least minSize*n bytes remain.
func (d *decoder) count(minSize int) int {
	n := d.uvarint()
	if d.err != nil {
		return 0
	}
	if minSize < 1 {
		minSize = 1
	}
	if n > uint64(len(d.buf)-d.off)/uint64(minSize) {
		d.fail(fmt.Errorf("count %d exceeds remaining input", n))
		return 0
	}
	return int(n)
}

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	if d.off >= len(d.buf) {
		d.fail(errTruncated)
		return 0
	}
	b := d.buf[d.off]
	d.off++
	return b
}

func (d *decoder) raw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.buf)-d.off {
		d.fail(errTruncated)
		return nil
	}
	b := d.buf[d.off : d.off+n : d.off+n]
	d.off += n
	return b
}

func (d *decoder) blob() []byte {
	return d.raw(d.count(1))
}

func (d *decoder) str() string {
	return string(d.blob())
}

func (d *decoder) bitmap() *roaring.Bitmap {
	b := d.blob()
	if d.err != nil {
		return nil
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(b); err != nil {
		d.fail(err)
		return nil
	}
	return bm
}

func encodeStoredBlock(docs [][]document.StoredField) []byte {
	e := &encoder{}
	e.uvarint(uint64(len(docs)))
	for _, fields := range docs {
		e.uvarint(uint64(len(fields)))
		for _, f := range fields {
			e.str(f.Name)
			e.u8(byte(f.Kind))
			switch f.Kind {
			case document.StoredInt32, document.StoredInt64:
				e.varint(f.I64)
			case document.StoredFloat32, document.StoredFloat64:
				e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(f.F64))
			case document.StoredString:
				e.str(f.S)
			case document.StoredBytes:
				e.blob(f.B)
			}
		}
	}
	return e.buf
}

func decodeStoredBlock(raw []byte) ([][]document.StoredField, error) {
	d := &decoder{buf: raw}
	docs := make([][]document.StoredField, d.count(1))
	for i := range docs {
		n := d.count(2)
		if n == 0 {
			continue
		}
		fields := make([]document.StoredField, n)
		for j := range fields {
			f := document.StoredField{Name: d.str(), Kind: document.StoredKind(d.u8())}
			switch f.Kind {
			case document.StoredInt32, document.StoredInt64:
				f.I64 = d.varint()
			case document.StoredFloat32, document.StoredFloat64:
				if b := d.raw(8); b != nil {
					f.F64 = math.Float64frombits(binary.LittleEndian.Uint64(b))
				}
			case document.StoredString:
				f.S = d.str()
			case document.StoredBytes:
				f.B = d.blob()
			default:
				d.fail(fmt.Errorf("unknown stored kind %d", f.Kind))
			}
			fields[j] = f
		}
		docs[i] = fields
	}
	return docs, d.err
}

// MarshalBinary encodes the segment in its file format.
func (s *Segment) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.raw([]byte(segmentMagic))
	e.u8(segmentVersion)
	e.u8(byte(s.compression))
	e.uvarint(uint64(s.maxDoc))
	e.uvarint(storedBlockDocs)

	e.uvarint(uint64(len(s.storedBlocks)))
	for _, blk := range s.storedBlocks {
		e.blob(blk)
	}

	e.uvarint(uint64(len(s.numeric)))
	for _, field := range sortedKeys(s.numeric) {
		col := s.numeric[field]
		e.str(field)
		e.bitmap(col.docs)
		for _, v := range col.values {
			e.varint(v)
		}
	}

	e.uvarint(uint64(len(s.binary)))
	for _, field := range sortedKeys(s.binary) {
		col := s.binary[field]
		e.str(field)
		e.bitmap(col.docs)
		for _, v := range col.values {
			e.blob(v)
		}
	}

	e.uvarint(uint64(len(s.terms)))
	for _, field := range sortedKeys(s.terms) {
		tc := s.terms[field]
		e.str(field)
		e.uvarint(uint64(len(tc.terms)))
		for i, t := range tc.terms {
			e.str(t)
			e.bitmap(tc.postings[i])
		}
	}

	e.uvarint(uint64(len(s.points)))
	for _, field := range sortedKeys(s.points) {
		pc := s.points[field]
		e.str(field)
		e.uvarint(uint64(pc.width))
		e.uvarint(uint64(len(pc.docs)))
		e.raw(pc.values)
		for _, doc := range pc.docs {
			e.uvarint(uint64(doc))
		}
	}

	e.uvarint(uint64(len(s.fieldNames)))
	for _, field := range sortedKeys(s.fieldNames) {
		e.str(field)
		e.bitmap(s.fieldNames[field])
	}

	if e.err != nil {
		return nil, fmt.Errorf("index: encode segment %s: %w", s.name, e.err)
	}
	return hash.AppendChecksum(e.buf), nil
}

// WriteTo writes the encoded segment to w.
func (s *Segment) WriteTo(w io.Writer) (int64, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadSegment decodes a segment file. The segment retains data, which must
// not be modified afterwards.
func ReadSegment(name string, data []byte) (*Segment, error) {
	payload, err := hash.VerifyChecksum(data)
	if err != nil {
		return nil, &CorruptSegmentError{Name: name, Reason: "checksum", cause: err}
	}
	if len(payload) < len(segmentMagic)+2 || string(payload[:len(segmentMagic)]) != segmentMagic {
		return nil, &CorruptSegmentError{Name: name, Reason: "bad magic"}
	}

	d := &decoder{buf: payload, off: len(segmentMagic)}
	if v := d.u8(); v != segmentVersion {
		return nil, &CorruptSegmentError{Name: name, Reason: fmt.Sprintf("unsupported version %d", v)}
	}
	c := Compression(d.u8())
	if c > CompressionHigh {
		return nil, &CorruptSegmentError{Name: name, Reason: fmt.Sprintf("unknown compression %d", c)}
	}
	maxDoc := d.uvarint()
	if maxDoc > math.MaxUint32 {
		return nil, &CorruptSegmentError{Name: name, Reason: "maxDoc overflow"}
	}
	if bd := d.uvarint(); d.err == nil && bd != storedBlockDocs {
		return nil, &CorruptSegmentError{Name: name, Reason: fmt.Sprintf("unsupported stored block size %d", bd)}
	}
	s := newSegment(name, int(maxDoc), c)

	nBlocks := d.count(1)
	if d.err == nil && nBlocks != (s.maxDoc+storedBlockDocs-1)/storedBlockDocs {
		return nil, &CorruptSegmentError{Name: name, Reason: "stored block count"}
	}
	s.storedBlocks = make([][]byte, nBlocks)
	for i := range s.storedBlocks {
		s.storedBlocks[i] = d.blob()
	}

	for n := d.count(1); n > 0 && d.err == nil; n-- {
		field := d.str()
		col := &numericColumn{docs: d.bitmap()}
		if col.docs != nil {
			col.values = make([]int64, d.checkColumn(col.docs, s.maxDoc))
			for i := range col.values {
				col.values[i] = d.varint()
			}
		}
		s.numeric[field] = col
	}

	for n := d.count(1); n > 0 && d.err == nil; n-- {
		field := d.str()
		col := &binaryColumn{docs: d.bitmap()}
		if col.docs != nil {
			col.values = make([][]byte, d.checkColumn(col.docs, s.maxDoc))
			for i := range col.values {
				col.values[i] = d.blob()
			}
		}
		s.binary[field] = col
	}

	for n := d.count(1); n > 0 && d.err == nil; n-- {
		field := d.str()
		nTerms := d.count(2)
		tc := &termColumn{terms: make([]string, nTerms), postings: make([]*roaring.Bitmap, nTerms)}
		for i := 0; i < nTerms && d.err == nil; i++ {
			tc.terms[i] = d.str()
			tc.postings[i] = d.bitmap()
			if tc.postings[i] != nil {
				d.checkDocs(tc.postings[i], s.maxDoc)
			}
		}
		s.terms[field] = tc
	}

	for n := d.count(1); n > 0 && d.err == nil; n-- {
		field := d.str()
		width := d.count(1)
		if d.err == nil && width == 0 {
			d.fail(errors.New("zero point width"))
		}
		cnt := d.count(max(width, 1))
		pc := &pointColumn{width: width, values: d.raw(cnt * width), docs: make([]uint32, cnt)}
		for i := range pc.docs {
			doc := d.uvarint()
			if d.err == nil && doc >= maxDoc {
				d.fail(fmt.Errorf("point doc %d out of range", doc))
			}
			pc.docs[i] = uint32(doc)
		}
		s.points[field] = pc
	}

	for n := d.count(1); n > 0 && d.err == nil; n-- {
		field := d.str()
		bm := d.bitmap()
		if bm != nil {
			d.checkDocs(bm, s.maxDoc)
		}
		s.fieldNames[field] = bm
	}

	if d.err == nil && d.off != len(payload) {
		d.fail(errors.New("trailing bytes"))
	}
	if d.err != nil {
		return nil, &CorruptSegmentError{Name: name, Reason: "decode", cause: d.err}
	}
	return s, nil
}

// checkDocs validates that bm only holds documents below maxDoc.
func (d *decoder) checkDocs(bm *roaring.Bitmap, maxDoc int) {
	if d.err != nil {
		return
	}
	if !bm.IsEmpty() && bm.Maximum() >= uint32(maxDoc) {
		d.fail(fmt.Errorf("document %d out of range", bm.Maximum()))
	}
}

// checkColumn validates the documents of a doc-values column and returns its
// cardinality. Every value takes at least one byte of the remaining input.
func (d *decoder) checkColumn(bm *roaring.Bitmap, maxDoc int) int {
	d.checkDocs(bm, maxDoc)
	if d.err != nil {
		return 0
	}
	card := bm.GetCardinality()
	if card > uint64(len(d.buf)-d.off) {
		d.fail(fmt.Errorf("column of %d values exceeds remaining input", card))
		return 0
	}
	return int(card)
}

// encodeLiveDocs encodes the deleted documents of a segment.
func encodeLiveDocs(deleted *roaring.Bitmap) ([]byte, error) {
	b, err := deleted.ToBytes()
	if err != nil {
		return nil, err
	}
	return hash.AppendChecksum(b), nil
}

func decodeLiveDocs(name string, data []byte) (*roaring.Bitmap, error) {
	payload, err := hash.VerifyChecksum(data)
	if err != nil {
		return nil, &CorruptSegmentError{Name: name, Reason: "checksum", cause: err}
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(payload); err != nil {
		return nil, &CorruptSegmentError{Name: name, Reason: "live docs", cause: err}
	}
	return bm, nil
}
