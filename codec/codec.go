package codec

import (
	"fmt"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/numeric"
)

// Kind discriminates the codec variants.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindLong
	KindDouble
	KindBoolean
	KindYear
	KindInstant
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	case KindBoolean:
		return "boolean"
	case KindYear:
		return "year"
	case KindInstant:
		return "instant"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Indexing controls whether values are searchable. The zero value enables it.
type Indexing uint8

const (
	IndexingEnabled Indexing = iota
	IndexingDisabled
)

// DocValues controls the columnar value used by sorts, aggregations and
// exists queries. The zero value disables it.
type DocValues uint8

const (
	DocValuesDisabled DocValues = iota
	DocValuesEnabled
)

// Storage controls whether values are kept for projections. The zero value
// disables it.
type Storage uint8

const (
	StorageDisabled Storage = iota
	StorageEnabled
)

// Capabilities is the storage capability set of a codec.
type Capabilities struct {
	Indexing  Indexing
	DocValues DocValues
	Storage   Storage
}

// Indexed reports whether values are searchable.
func (c Capabilities) Indexed() bool { return c.Indexing == IndexingEnabled }

// DocValued reports whether doc values are written.
func (c Capabilities) DocValued() bool { return c.DocValues == DocValuesEnabled }

// Stored reports whether values are stored.
func (c Capabilities) Stored() bool { return c.Storage == StorageEnabled }

// FieldCodec is the type-erased view of a codec used for compatibility checks.
type FieldCodec interface {
	Kind() Kind
	Capabilities() Capabilities

	// IsCompatibleWith reports whether both codecs encode, decode and store
	// values identically, so that one query can target both fields.
	IsCompatibleWith(other FieldCodec) bool
}

// Codec converts values of F for one field.
type Codec[F any] interface {
	FieldCodec

	// AddToDocument adds the representations of value to b under path.
	// A nil value adds nothing unless a null replacement is configured.
	AddToDocument(b *document.Builder, path string, value *F) error

	// DecodeStored reconstructs a value from its stored field.
	DecodeStored(f document.StoredField) (F, error)
}

// NumericCodec is a codec whose encoded type is a numeric primitive.
type NumericCodec[F any, E numeric.Number] interface {
	Codec[F]

	// Encode fails with an *EncodingError for values outside the codec's range.
	Encode(v F) (E, error)

	// Decode inverts Encode. It is total; the null sentinel decodes to the
	// null replacement with ok == false.
	Decode(e E) (v F, ok bool)

	Domain() numeric.Domain[E]

	// NullSentinel returns the encoding of indexed nils, if configured.
	NullSentinel() (E, bool)
}

// Option configures a codec.
type Option func(*options)

type options struct {
	caps       Capabilities
	nullAs     any
	normalizer Normalizer
}

// WithIndexing sets whether values are searchable.
func WithIndexing(i Indexing) Option {
	return func(o *options) {
		o.caps.Indexing = i
	}
}

// WithDocValues sets whether doc values are written.
func WithDocValues(d DocValues) Option {
	return func(o *options) {
		o.caps.DocValues = d
	}
}

// WithStorage sets whether values are stored.
func WithStorage(s Storage) Option {
	return func(o *options) {
		o.caps.Storage = s
	}
}

// WithIndexNullAs indexes nil values so they can be matched. v must have the
// codec's domain type exactly (int32 for integer fields, time.Time for
// instants and so on) and must itself be encodable.
func WithIndexNullAs(v any) Option {
	return func(o *options) {
		o.nullAs = v
	}
}

// WithNormalizer sets the normalizer of a string codec.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) {
		o.normalizer = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

func nullReplacement[F any](o options) (v F, ok bool, err error) {
	if o.nullAs == nil {
		return v, false, nil
	}
	v, ok = o.nullAs.(F)
	if !ok {
		return v, false, fmt.Errorf("%w: null replacement %v is a %T, want %T", ErrInvalidOption, o.nullAs, o.nullAs, v)
	}
	return v, true, nil
}
