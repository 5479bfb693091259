package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/hsearch/document"
)

// nullString is the term indexed for nils. Legitimate values cannot start
// with a NUL byte once a null replacement is configured.
const nullString = "\x00"

// Normalizer rewrites string values before they are indexed or matched.
// Codecs compare normalizers by Name.
type Normalizer struct {
	Name string
	Fn   func(string) string
}

var (
	// LowercaseNormalizer lowercases values.
	LowercaseNormalizer = Normalizer{Name: "lowercase", Fn: strings.ToLower}

	// TrimNormalizer removes leading and trailing white space.
	TrimNormalizer = Normalizer{Name: "trim", Fn: strings.TrimSpace}
)

// String is the codec of keyword fields: values are indexed as exact terms
// after normalization.
type String struct {
	caps       Capabilities
	normalizer Normalizer

	hasNull     bool
	nullAs      string
	nullEncoded string
}

var _ Codec[string] = (*String)(nil)

// NewString returns a string codec.
func NewString(optFns ...Option) (*String, error) {
	o := applyOptions(optFns)
	if o.normalizer.Name != "" && o.normalizer.Fn == nil {
		return nil, fmt.Errorf("%w: normalizer %s has no function", ErrInvalidOption, o.normalizer.Name)
	}
	c := &String{caps: o.caps, normalizer: o.normalizer}

	nullAs, ok, err := nullReplacement[string](o)
	if err != nil {
		return nil, err
	}
	if ok {
		c.hasNull = true
		enc, err := c.Encode(nullAs)
		if err != nil {
			return nil, fmt.Errorf("%w: null replacement: %w", ErrInvalidOption, err)
		}
		c.nullAs, c.nullEncoded = nullAs, enc
	}
	return c, nil
}

// Kind implements FieldCodec.
func (c *String) Kind() Kind { return KindString }

// Capabilities implements FieldCodec.
func (c *String) Capabilities() Capabilities { return c.caps }

// Normalizer returns the configured normalizer; its Name is empty if none.
func (c *String) Normalizer() Normalizer { return c.normalizer }

// NullReplacement returns the value nils are indexed as, if configured.
func (c *String) NullReplacement() (string, bool) { return c.nullAs, c.hasNull }

// NullSentinel returns the term indexed for nils, if configured.
func (c *String) NullSentinel() (string, bool) {
	if !c.hasNull {
		return "", false
	}
	return nullString, true
}

// Encode normalizes v.
func (c *String) Encode(v string) (string, error) {
	if !utf8.ValidString(v) {
		return "", &EncodingError{Kind: KindString, Value: v, Reason: "invalid UTF-8"}
	}
	if c.normalizer.Fn != nil {
		v = c.normalizer.Fn(v)
	}
	if c.hasNull && strings.HasPrefix(v, nullString) {
		return "", &EncodingError{Kind: KindString, Value: v, Reason: "value is reserved for indexed nulls"}
	}
	return v, nil
}

// Decode returns e, or the null replacement with ok == false for the sentinel.
func (c *String) Decode(e string) (string, bool) {
	if c.hasNull && e == nullString {
		return c.nullAs, false
	}
	return e, true
}

// AddToDocument implements Codec.
func (c *String) AddToDocument(b *document.Builder, path string, value *string) error {
	var e string
	switch {
	case value != nil:
		var err error
		if e, err = c.Encode(*value); err != nil {
			return fmt.Errorf("field %s: %w", path, err)
		}
	case c.hasNull:
		e = nullString
	default:
		return nil
	}

	if c.caps.Indexed() {
		b.AddTerm(path, e)
	}
	if c.caps.DocValued() {
		if err := b.AddBinaryDocValue(path, []byte(e)); err != nil {
			return err
		}
	} else {
		b.AddFieldName(path)
	}
	if c.caps.Stored() {
		b.AddStored(document.StoredStringField(path, e))
	}
	return nil
}

// DecodeStored implements Codec.
func (c *String) DecodeStored(f document.StoredField) (string, error) {
	s, ok := f.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s holds %s, want %s", ErrCorruptStoredField, f.Name, f.Kind, document.StoredString)
	}
	v, _ := c.Decode(s)
	return v, nil
}

// IsCompatibleWith implements FieldCodec.
func (c *String) IsCompatibleWith(other FieldCodec) bool {
	o, ok := other.(*String)
	if !ok || o.caps != c.caps || o.hasNull != c.hasNull || o.normalizer.Name != c.normalizer.Name {
		return false
	}
	return !c.hasNull || c.nullEncoded == o.nullEncoded
}
