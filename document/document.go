// Package document defines the indexable representation of a single entity:
// stored fields, doc values, indexed points and terms.
//
// A Document is produced by a Builder and consumed by the index package when a
// segment is written. Field codecs (package codec) are the usual producers of
// builder calls; nothing here knows about domain types.
package document

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// IDFieldName is the reserved field holding the document identifier, both as
	// a binary doc value (for collectors) and as a term (for deletes).
	IDFieldName = "__HSEARCH_id"

	// FieldNamesFieldName is the reserved field recording which fields a
	// document has a value for, when doc values cannot answer exists queries.
	FieldNamesFieldName = "__HSEARCH_field_names"
)

var (
	// ErrMissingID is returned when a document is built without an identifier.
	ErrMissingID = errors.New("document: missing identifier")

	// ErrMultiValuedDocValues is returned when a single-valued doc value is
	// added twice for the same field.
	ErrMultiValuedDocValues = errors.New("document: doc values are single-valued")

	// ErrReservedField is returned when a caller writes to a reserved field name.
	ErrReservedField = errors.New("document: reserved field name")
)

// StoredKind identifies the primitive carried by a StoredField.
type StoredKind uint8

const (
	// StoredInvalid is the zero value.
	StoredInvalid StoredKind = iota
	StoredInt32
	StoredInt64
	StoredFloat32
	StoredFloat64
	StoredString
	StoredBytes
)

// String returns the name of the stored kind.
func (k StoredKind) String() string {
	switch k {
	case StoredInt32:
		return "int32"
	case StoredInt64:
		return "int64"
	case StoredFloat32:
		return "float32"
	case StoredFloat64:
		return "float64"
	case StoredString:
		return "string"
	case StoredBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// StoredField is a value kept verbatim in the segment and returned by
// projections. Integers are held in I64 and floats in F64 regardless of width.
//
// NOTE: This is also the persisted representation; keep it stable.
type StoredField struct {
	Name string
	Kind StoredKind
	I64  int64
	F64  float64
	S    string
	B    []byte
}

// StoredInt32Field returns an int32 stored field.
func StoredInt32Field(name string, v int32) StoredField {
	return StoredField{Name: name, Kind: StoredInt32, I64: int64(v)}
}

// StoredInt64Field returns an int64 stored field.
func StoredInt64Field(name string, v int64) StoredField {
	return StoredField{Name: name, Kind: StoredInt64, I64: v}
}

// StoredFloat32Field returns a float32 stored field.
func StoredFloat32Field(name string, v float32) StoredField {
	return StoredField{Name: name, Kind: StoredFloat32, F64: float64(v)}
}

// StoredFloat64Field returns a float64 stored field.
func StoredFloat64Field(name string, v float64) StoredField {
	return StoredField{Name: name, Kind: StoredFloat64, F64: v}
}

// StoredStringField returns a string stored field.
func StoredStringField(name, v string) StoredField {
	return StoredField{Name: name, Kind: StoredString, S: v}
}

// StoredBytesField returns a binary stored field. The slice is not copied.
func StoredBytesField(name string, v []byte) StoredField {
	return StoredField{Name: name, Kind: StoredBytes, B: v}
}

// AsInt32 returns the value if Kind is StoredInt32.
func (f StoredField) AsInt32() (int32, bool) {
	if f.Kind != StoredInt32 || f.I64 < math.MinInt32 || f.I64 > math.MaxInt32 {
		return 0, false
	}
	return int32(f.I64), true
}

// AsInt64 returns the value if Kind is StoredInt64.
func (f StoredField) AsInt64() (int64, bool) {
	if f.Kind != StoredInt64 {
		return 0, false
	}
	return f.I64, true
}

// AsFloat32 returns the value if Kind is StoredFloat32.
func (f StoredField) AsFloat32() (float32, bool) {
	if f.Kind != StoredFloat32 {
		return 0, false
	}
	return float32(f.F64), true
}

// AsFloat64 returns the value if Kind is StoredFloat64.
func (f StoredField) AsFloat64() (float64, bool) {
	if f.Kind != StoredFloat64 {
		return 0, false
	}
	return f.F64, true
}

// AsString returns the value if Kind is StoredString.
func (f StoredField) AsString() (string, bool) {
	if f.Kind != StoredString {
		return "", false
	}
	return f.S, true
}

// AsBytes returns the value if Kind is StoredBytes.
func (f StoredField) AsBytes() ([]byte, bool) {
	if f.Kind != StoredBytes {
		return nil, false
	}
	return f.B, true
}

// Document is the fully built, index-ready form of an entity.
type Document struct {
	ID               string
	Stored           []StoredField
	NumericDocValues map[string]int64
	BinaryDocValues  map[string][]byte
	// Points holds fixed-width sortable encodings, possibly multi-valued.
	Points map[string][][]byte
	// Terms holds exact (non-analyzed) indexed terms, possibly multi-valued.
	Terms      map[string][]string
	FieldNames []string
}

// StoredFields returns the stored fields named name, in insertion order.
func (d *Document) StoredFields(name string) []StoredField {
	var out []StoredField
	for _, f := range d.Stored {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// Builder accumulates the fields of one document.
// A Builder is not safe for concurrent use.
type Builder struct {
	doc        Document
	fieldNames map[string]struct{}
}

// NewBuilder creates a builder for the document identified by id.
func NewBuilder(id string) *Builder {
	return &Builder{
		doc: Document{
			ID:               id,
			NumericDocValues: make(map[string]int64),
			BinaryDocValues:  make(map[string][]byte),
			Points:           make(map[string][][]byte),
			Terms:            make(map[string][]string),
		},
		fieldNames: make(map[string]struct{}),
	}
}

// AddStored adds a stored field.
func (b *Builder) AddStored(f StoredField) {
	b.doc.Stored = append(b.doc.Stored, f)
}

// AddNumericDocValue sets the numeric doc value of a field.
func (b *Builder) AddNumericDocValue(name string, v int64) error {
	if isReserved(name) {
		return fmt.Errorf("%w: %s", ErrReservedField, name)
	}
	if _, ok := b.doc.NumericDocValues[name]; ok {
		return fmt.Errorf("%w: %s", ErrMultiValuedDocValues, name)
	}
	b.doc.NumericDocValues[name] = v
	return nil
}

// AddBinaryDocValue sets the binary doc value of a field. The slice is copied.
func (b *Builder) AddBinaryDocValue(name string, v []byte) error {
	if isReserved(name) {
		return fmt.Errorf("%w: %s", ErrReservedField, name)
	}
	if _, ok := b.doc.BinaryDocValues[name]; ok {
		return fmt.Errorf("%w: %s", ErrMultiValuedDocValues, name)
	}
	b.doc.BinaryDocValues[name] = append([]byte(nil), v...)
	return nil
}

// AddPoint indexes a sortable fixed-width encoding of a value.
func (b *Builder) AddPoint(name string, encoded []byte) {
	b.doc.Points[name] = append(b.doc.Points[name], append([]byte(nil), encoded...))
}

// AddTerm indexes an exact term.
func (b *Builder) AddTerm(name, term string) {
	b.doc.Terms[name] = append(b.doc.Terms[name], term)
}

// AddFieldName records that the document has a value for name.
func (b *Builder) AddFieldName(name string) {
	b.fieldNames[name] = struct{}{}
}

// Build finalizes the document. The builder must not be used afterwards.
func (b *Builder) Build() (Document, error) {
	if b.doc.ID == "" {
		return Document{}, ErrMissingID
	}
	b.doc.BinaryDocValues[IDFieldName] = []byte(b.doc.ID)
	b.doc.Terms[IDFieldName] = []string{b.doc.ID}

	if len(b.fieldNames) > 0 {
		names := make([]string, 0, len(b.fieldNames))
		for n := range b.fieldNames {
			names = append(names, n)
		}
		sort.Strings(names)
		b.doc.FieldNames = names
	}
	return b.doc, nil
}

func isReserved(name string) bool {
	return name == IDFieldName || name == FieldNamesFieldName
}
