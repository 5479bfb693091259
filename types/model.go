package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/hsearch/document"
)

// IndexModel is the schema of one index.
type IndexModel struct {
	name   string
	fields map[string]FieldType
}

// NewIndexModel returns an empty model for the index name.
func NewIndexModel(name string) *IndexModel {
	return &IndexModel{name: name, fields: make(map[string]FieldType)}
}

// Name returns the index name.
func (m *IndexModel) Name() string { return m.name }

// AddField declares the field at path. Paths are dot separated and may not
// use the reserved "__HSEARCH_" prefix.
func (m *IndexModel) AddField(path string, t FieldType) error {
	switch {
	case path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, "."):
		return fmt.Errorf("types: invalid field path %q", path)
	case strings.HasPrefix(path, "__HSEARCH_"):
		return fmt.Errorf("%w: %s", document.ErrReservedField, path)
	case t == nil:
		return fmt.Errorf("types: nil field type for %s", path)
	}
	if _, ok := m.fields[path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateField, path)
	}
	m.fields[path] = t
	return nil
}

// Field returns the field type at path.
func (m *IndexModel) Field(path string) (FieldType, bool) {
	t, ok := m.fields[path]
	return t, ok
}

// Paths returns the declared paths in sorted order.
func (m *IndexModel) Paths() []string {
	paths := make([]string, 0, len(m.fields))
	for p := range m.fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// BuildDocument converts the values of one entity into a document. Values for
// undeclared paths are rejected.
func (m *IndexModel) BuildDocument(id string, values map[string]any) (document.Document, error) {
	b := document.NewBuilder(id)
	for _, path := range m.Paths() {
		if err := m.fields[path].AddValue(b, path, values[path]); err != nil {
			return document.Document{}, err
		}
	}
	for path := range values {
		if _, ok := m.fields[path]; !ok {
			return document.Document{}, fmt.Errorf("%w: %s in index %s", ErrUnknownField, path, m.name)
		}
	}
	return b.Build()
}
