package search

import (
	"cmp"
	"sort"

	"github.com/hupe1980/hsearch/index"
)

// TermBucket is the number of matches sharing one value.
type TermBucket struct {
	Term  string
	Count int
}

// TermsAggregationCollector counts matches per binary doc value of a field.
type TermsAggregationCollector struct {
	leafBinding
	field  string
	size   int
	values index.BinaryDocValues
	counts map[string]int
	skip   map[string]struct{}
}

// Skip leaves documents whose value is term out of every bucket.
func (c *TermsAggregationCollector) Skip(term string) {
	if c.skip == nil {
		c.skip = make(map[string]struct{})
	}
	c.skip[term] = struct{}{}
}

// NewTermsAggregationCollector keeps the size most frequent values of field;
// size <= 0 keeps all.
func NewTermsAggregationCollector(field string, size int) *TermsAggregationCollector {
	return &TermsAggregationCollector{field: field, size: size, counts: make(map[string]int)}
}

func (c *TermsAggregationCollector) ScoreMode() ScoreMode { return CompleteNoScores }

func (c *TermsAggregationCollector) SetNextReader(leaf index.LeafContext) error {
	if err := c.checkBind(); err != nil {
		return err
	}
	c.bound = true
	c.values = leaf.Reader.BinaryDocValues(c.field)
	return nil
}

func (c *TermsAggregationCollector) Collect(doc int) error {
	if err := c.checkCollect(); err != nil {
		return err
	}
	ok, err := c.values.AdvanceExact(doc)
	if err != nil || !ok {
		return err
	}
	term := string(c.values.Value())
	if _, ok := c.skip[term]; ok {
		return nil
	}
	c.counts[term]++
	return nil
}

func (c *TermsAggregationCollector) Finish() error {
	c.values = nil
	return c.finish()
}

// Buckets returns counts ordered by count descending then term ascending.
func (c *TermsAggregationCollector) Buckets() []TermBucket {
	out := make([]TermBucket, 0, len(c.counts))
	for t, n := range c.counts {
		out = append(out, TermBucket{Term: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if c.size > 0 && len(out) > c.size {
		out = out[:c.size]
	}
	return out
}

// Range is a half-open interval [Lower, Upper). A nil bound is open.
type Range[E cmp.Ordered] struct {
	Key   string
	Lower *E
	Upper *E
}

// Contains reports whether v lies in the range.
func (r Range[E]) Contains(v E) bool {
	if r.Lower != nil && cmp.Compare(v, *r.Lower) < 0 {
		return false
	}
	if r.Upper != nil && cmp.Compare(v, *r.Upper) >= 0 {
		return false
	}
	return true
}

// RangeBucket is the number of matches falling in one range.
type RangeBucket[E cmp.Ordered] struct {
	Range Range[E]
	Count int
}

// RangeAggregationCollector counts matches per range of a numeric doc value.
// Ranges may overlap; a document counts once in each range containing it.
type RangeAggregationCollector[E cmp.Ordered] struct {
	leafBinding
	field  string
	decode func(int64) E
	ranges []Range[E]
	counts []int
	values index.NumericDocValues
	skip   map[int64]struct{}
}

// Skip leaves documents whose doc value is dv out of every bucket.
func (c *RangeAggregationCollector[E]) Skip(dv int64) {
	if c.skip == nil {
		c.skip = make(map[int64]struct{})
	}
	c.skip[dv] = struct{}{}
}

// NewRangeAggregationCollector counts values of field decoded with decode,
// typically a numeric domain's FromDocValue.
func NewRangeAggregationCollector[E cmp.Ordered](field string, decode func(int64) E, ranges ...Range[E]) *RangeAggregationCollector[E] {
	return &RangeAggregationCollector[E]{
		field:  field,
		decode: decode,
		ranges: ranges,
		counts: make([]int, len(ranges)),
	}
}

func (c *RangeAggregationCollector[E]) ScoreMode() ScoreMode { return CompleteNoScores }

func (c *RangeAggregationCollector[E]) SetNextReader(leaf index.LeafContext) error {
	if err := c.checkBind(); err != nil {
		return err
	}
	c.bound = true
	c.values = leaf.Reader.NumericDocValues(c.field)
	return nil
}

func (c *RangeAggregationCollector[E]) Collect(doc int) error {
	if err := c.checkCollect(); err != nil {
		return err
	}
	ok, err := c.values.AdvanceExact(doc)
	if err != nil || !ok {
		return err
	}
	dv := c.values.Value()
	if _, ok := c.skip[dv]; ok {
		return nil
	}
	v := c.decode(dv)
	for i, r := range c.ranges {
		if r.Contains(v) {
			c.counts[i]++
		}
	}
	return nil
}

func (c *RangeAggregationCollector[E]) Finish() error {
	c.values = nil
	return c.finish()
}

// Buckets returns one bucket per configured range, in configuration order.
func (c *RangeAggregationCollector[E]) Buckets() []RangeBucket[E] {
	out := make([]RangeBucket[E], len(c.ranges))
	for i, r := range c.ranges {
		out[i] = RangeBucket[E]{Range: r, Count: c.counts[i]}
	}
	return out
}
