package search

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/internal/queue"
)

// TotalHitCountCollector counts live matches.
type TotalHitCountCollector struct {
	leafBinding
	total int
}

// NewTotalHitCountCollector returns an empty counter.
func NewTotalHitCountCollector() *TotalHitCountCollector { return &TotalHitCountCollector{} }

func (c *TotalHitCountCollector) ScoreMode() ScoreMode { return CompleteNoScores }

func (c *TotalHitCountCollector) SetNextReader(index.LeafContext) error {
	if err := c.checkBind(); err != nil {
		return err
	}
	c.bound = true
	return nil
}

func (c *TotalHitCountCollector) Collect(int) error {
	if err := c.checkCollect(); err != nil {
		return err
	}
	c.total++
	return nil
}

func (c *TotalHitCountCollector) Finish() error { return c.finish() }

// TotalHits returns the number of collected documents.
func (c *TotalHitCountCollector) TotalHits() int { return c.total }

// ScoreDoc is a global document number with its score.
type ScoreDoc struct {
	Doc   int
	Score float32
}

// worse orders by score descending then doc ascending, reversed.
func worse(a, b ScoreDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Doc > b.Doc
}

// TopDocsCollector keeps the n best scoring documents.
type TopDocsCollector struct {
	leafBinding
	n       int
	scorer  Scorable
	docBase int
	top     *queue.TopN[ScoreDoc]
	total   int
}

// NewTopDocsCollector returns a collector keeping n documents.
func NewTopDocsCollector(n int) *TopDocsCollector {
	return &TopDocsCollector{n: n, top: queue.NewTopN(n, worse)}
}

func (c *TopDocsCollector) ScoreMode() ScoreMode { return Complete }

func (c *TopDocsCollector) SetScorer(s Scorable) { c.scorer = s }

func (c *TopDocsCollector) SetNextReader(leaf index.LeafContext) error {
	if err := c.checkBind(); err != nil {
		return err
	}
	c.bound = true
	c.docBase = leaf.DocBase
	return nil
}

func (c *TopDocsCollector) Collect(doc int) error {
	if err := c.checkCollect(); err != nil {
		return err
	}
	c.total++
	if c.n <= 0 {
		return nil
	}
	var score float32
	if c.scorer != nil {
		score = c.scorer.Score()
	}
	c.top.Offer(ScoreDoc{Doc: c.docBase + doc, Score: score})
	return nil
}

func (c *TopDocsCollector) Finish() error { return c.finish() }

// TopDocs returns the kept documents by score descending then doc ascending.
func (c *TopDocsCollector) TopDocs() []ScoreDoc {
	return c.top.Sorted()
}

// TotalHits returns the number of collected documents.
func (c *TopDocsCollector) TotalHits() int { return c.total }

// StoredFieldsCollector loads stored fields of every match.
type StoredFieldsCollector struct {
	leafBinding
	fields  map[string]struct{} // nil means all
	reader  *index.SegmentReader
	docBase int
	docs    map[int][]document.StoredField
}

// NewStoredFieldsCollector projects the named fields, or all when none given.
func NewStoredFieldsCollector(fields ...string) *StoredFieldsCollector {
	c := &StoredFieldsCollector{docs: make(map[int][]document.StoredField)}
	if len(fields) > 0 {
		c.fields = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			c.fields[f] = struct{}{}
		}
	}
	return c
}

func (c *StoredFieldsCollector) ScoreMode() ScoreMode { return CompleteNoScores }

func (c *StoredFieldsCollector) SetNextReader(leaf index.LeafContext) error {
	if err := c.checkBind(); err != nil {
		return err
	}
	c.bound = true
	c.reader = leaf.Reader
	c.docBase = leaf.DocBase
	return nil
}

func (c *StoredFieldsCollector) Collect(doc int) error {
	if err := c.checkCollect(); err != nil {
		return err
	}
	stored, err := c.reader.Document(doc)
	if err != nil {
		return err
	}
	var out []document.StoredField
	for _, f := range stored {
		if c.fields == nil {
			out = append(out, f)
		} else if _, ok := c.fields[f.Name]; ok {
			out = append(out, f)
		}
	}
	c.docs[c.docBase+doc] = out
	return nil
}

func (c *StoredFieldsCollector) Finish() error {
	c.reader = nil
	return c.finish()
}

// Get returns the projected fields of the global document doc.
func (c *StoredFieldsCollector) Get(doc int) ([]document.StoredField, bool) {
	f, ok := c.docs[doc]
	return f, ok
}

// MultiCollector fans every call out to its children in order.
type MultiCollector struct {
	children []Collector
}

// NewMultiCollector combines collectors. Nil children are rejected.
func NewMultiCollector(children ...Collector) (*MultiCollector, error) {
	for _, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: nil child collector", ErrPreconditionViolation)
		}
	}
	return &MultiCollector{children: children}, nil
}

// Children returns the combined collectors.
func (m *MultiCollector) Children() []Collector { return m.children }

// ScoreMode returns the most demanding mode of the children.
func (m *MultiCollector) ScoreMode() ScoreMode {
	mode := CompleteNoScores
	for _, c := range m.children {
		if c.ScoreMode() > mode {
			mode = c.ScoreMode()
		}
	}
	return mode
}

// SetScorer forwards the scorer to children reading scores.
func (m *MultiCollector) SetScorer(s Scorable) {
	for _, c := range m.children {
		if sa, ok := c.(ScorerAware); ok {
			sa.SetScorer(s)
		}
	}
}

func (m *MultiCollector) SetNextReader(leaf index.LeafContext) error {
	for _, c := range m.children {
		if err := c.SetNextReader(leaf); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiCollector) Collect(doc int) error {
	for _, c := range m.children {
		if err := c.Collect(doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiCollector) Finish() error {
	var errs []error
	for _, c := range m.children {
		if err := c.Finish(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
