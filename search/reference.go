package search

import (
	"fmt"
	"sort"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
)

// DocumentReference identifies a matched entity by index name and id.
type DocumentReference struct {
	IndexName string
	ID        string
}

func (r DocumentReference) String() string { return r.IndexName + "/" + r.ID }

// DocumentReferences is an immutable snapshot of collected references keyed
// by global document number.
type DocumentReferences struct {
	byDoc map[int]DocumentReference
	docs  []int // sorted
}

func newDocumentReferences(byDoc map[int]DocumentReference) *DocumentReferences {
	docs := make([]int, 0, len(byDoc))
	for doc := range byDoc {
		docs = append(docs, doc)
	}
	sort.Ints(docs)
	return &DocumentReferences{byDoc: byDoc, docs: docs}
}

// Get returns the reference collected for the global document doc.
func (r *DocumentReferences) Get(doc int) (DocumentReference, bool) {
	ref, ok := r.byDoc[doc]
	return ref, ok
}

// Len returns the number of references.
func (r *DocumentReferences) Len() int { return len(r.docs) }

// Docs returns the global document numbers in increasing order.
func (r *DocumentReferences) Docs() []int {
	return append([]int(nil), r.docs...)
}

// Ordered returns the references in increasing global document order.
func (r *DocumentReferences) Ordered() []DocumentReference {
	out := make([]DocumentReference, len(r.docs))
	for i, doc := range r.docs {
		out[i] = r.byDoc[doc]
	}
	return out
}

// leafState is everything resolved once per segment. It is replaced as a
// whole on each SetNextReader so no field can be stale.
type leafState struct {
	indexName string
	ids       index.BinaryDocValues
	docBase   int
}

// DocumentReferenceCollector maps every match to its DocumentReference.
type DocumentReferenceCollector struct {
	resolver  index.MetadataResolver
	leaf      *leafState // nil while unbound
	done      bool
	collected map[int]DocumentReference
	snapshot  *DocumentReferences
}

// NewDocumentReferenceCollector returns a collector resolving index names
// through resolver.
func NewDocumentReferenceCollector(resolver index.MetadataResolver) (*DocumentReferenceCollector, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: nil metadata resolver", ErrPreconditionViolation)
	}
	return &DocumentReferenceCollector{
		resolver:  resolver,
		collected: make(map[int]DocumentReference),
	}, nil
}

// DocumentReferenceCollectorFactory creates a DocumentReferenceCollector per query.
func DocumentReferenceCollectorFactory(ctx *CollectorExecutionContext) (Collector, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil execution context", ErrPreconditionViolation)
	}
	return NewDocumentReferenceCollector(ctx.Resolver)
}

// ScoreMode implements Collector.
func (c *DocumentReferenceCollector) ScoreMode() ScoreMode { return CompleteNoScores }

// SetNextReader resolves the index name and identifier doc values of leaf.
func (c *DocumentReferenceCollector) SetNextReader(leaf index.LeafContext) error {
	if c.done {
		return fmt.Errorf("%w: SetNextReader after Finish", ErrCollectorState)
	}
	c.leaf = nil
	name, err := c.resolver.ResolveIndexName(leaf)
	if err != nil {
		return err
	}
	c.leaf = &leafState{
		indexName: name,
		ids:       leaf.Reader.BinaryDocValues(document.IDFieldName),
		docBase:   leaf.DocBase,
	}
	return nil
}

// Collect records the reference of the segment-local document doc.
func (c *DocumentReferenceCollector) Collect(doc int) error {
	if c.done {
		return fmt.Errorf("%w: Collect after Finish", ErrCollectorState)
	}
	leaf := c.leaf
	if leaf == nil {
		return fmt.Errorf("%w: Collect before SetNextReader", ErrCollectorState)
	}
	ok, err := leaf.ids.AdvanceExact(doc)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: doc %d of index %s", ErrMissingIdentifier, doc, leaf.indexName)
	}
	c.collected[leaf.docBase+doc] = DocumentReference{
		IndexName: leaf.indexName,
		ID:        string(leaf.ids.Value()),
	}
	return nil
}

// Finish freezes the collected references.
func (c *DocumentReferenceCollector) Finish() error {
	if c.done {
		return fmt.Errorf("%w: Finish called twice", ErrCollectorState)
	}
	c.done = true
	c.leaf = nil
	c.snapshot = newDocumentReferences(c.collected)
	c.collected = nil
	return nil
}

// Get returns the reference collected for the global document doc.
func (c *DocumentReferenceCollector) Get(doc int) (DocumentReference, bool) {
	if c.snapshot != nil {
		return c.snapshot.Get(doc)
	}
	ref, ok := c.collected[doc]
	return ref, ok
}

// References returns the snapshot taken by Finish.
func (c *DocumentReferenceCollector) References() (*DocumentReferences, error) {
	if c.snapshot == nil {
		return nil, fmt.Errorf("%w: References before Finish", ErrCollectorState)
	}
	return c.snapshot, nil
}
