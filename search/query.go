package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/hsearch/index"
)

// Matches are the documents a query matches in one leaf, before deletions
// are applied. Docs is owned by the caller.
type Matches struct {
	Docs *roaring.Bitmap
	// Scores holds per-document scores. If nil, every document scores Score.
	Scores map[uint32]float32
	Score  float32
}

// ScoreOf returns the score of doc.
func (m *Matches) ScoreOf(doc uint32) float32 {
	if m.Scores != nil {
		return m.Scores[doc]
	}
	return m.Score
}

func constantMatches(docs *roaring.Bitmap, score float32) *Matches {
	return &Matches{Docs: docs, Score: score}
}

// Query is a backend-native query.
type Query interface {
	// Execute returns the matches of the query in leaf. Scores are only
	// meaningful when needsScores is true.
	Execute(leaf index.LeafContext, needsScores bool) (*Matches, error)
	String() string
}

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

func (MatchAllQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	docs := roaring.New()
	docs.AddRange(0, uint64(leaf.Reader.MaxDoc()))
	return constantMatches(docs, 1), nil
}

func (MatchAllQuery) String() string { return "*:*" }

// MatchNoneQuery matches nothing.
type MatchNoneQuery struct {
	Reason string
}

func (MatchNoneQuery) Execute(index.LeafContext, bool) (*Matches, error) {
	return constantMatches(roaring.New(), 0), nil
}

func (q MatchNoneQuery) String() string {
	if q.Reason == "" {
		return "MatchNone"
	}
	return "MatchNone(" + q.Reason + ")"
}

// TermQuery matches documents indexed with an exact term.
type TermQuery struct {
	Field string
	Term  string
}

func (q TermQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	p := leaf.Reader.Postings(q.Field, q.Term)
	if p == nil {
		return constantMatches(roaring.New(), 1), nil
	}
	return constantMatches(p.Clone(), 1), nil
}

func (q TermQuery) String() string { return q.Field + ":" + q.Term }

// TermRangeQuery matches documents with a term of Field between Lower and
// Upper in byte order. A nil bound is open.
type TermRangeQuery struct {
	Field        string
	Lower        *string
	Upper        *string
	IncludeLower bool
	IncludeUpper bool
}

func (q TermRangeQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	terms := leaf.Reader.Terms(q.Field)
	start, end := 0, len(terms)
	if q.Lower != nil {
		start = sort.SearchStrings(terms, *q.Lower)
		if !q.IncludeLower && start < end && terms[start] == *q.Lower {
			start++
		}
	}
	if q.Upper != nil {
		end = sort.SearchStrings(terms, *q.Upper)
		if q.IncludeUpper && end < len(terms) && terms[end] == *q.Upper {
			end++
		}
	}
	docs := roaring.New()
	for i := start; i < end; i++ {
		docs.Or(leaf.Reader.Postings(q.Field, terms[i]))
	}
	return constantMatches(docs, 1), nil
}

func (q TermRangeQuery) String() string {
	lo, hi := "*", "*"
	if q.Lower != nil {
		lo = strconv.Quote(*q.Lower)
	}
	if q.Upper != nil {
		hi = strconv.Quote(*q.Upper)
	}
	open, closing := "{", "}"
	if q.IncludeLower {
		open = "["
	}
	if q.IncludeUpper {
		closing = "]"
	}
	return fmt.Sprintf("%s:%s%s TO %s%s", q.Field, open, lo, hi, closing)
}

// PointRangeQuery matches documents with a point in [Lower, Upper], compared
// as unsigned bytes. A nil bound is open.
type PointRangeQuery struct {
	Field string
	Lower []byte
	Upper []byte
}

func (q PointRangeQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	docs, err := leaf.Reader.PointRange(q.Field, q.Lower, q.Upper)
	if err != nil {
		return nil, err
	}
	return constantMatches(docs, 1), nil
}

func (q PointRangeQuery) String() string {
	lo, hi := "*", "*"
	if q.Lower != nil {
		lo = fmt.Sprintf("%x", q.Lower)
	}
	if q.Upper != nil {
		hi = fmt.Sprintf("%x", q.Upper)
	}
	return fmt.Sprintf("%s:[%s TO %s]", q.Field, lo, hi)
}

// DocValuesExistsQuery matches documents with a doc value for Field.
type DocValuesExistsQuery struct {
	Field string
}

func (q DocValuesExistsQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	return constantMatches(leaf.Reader.DocsWithValue(q.Field).Clone(), 1), nil
}

func (q DocValuesExistsQuery) String() string { return "DocValuesExists(" + q.Field + ")" }

// FieldExistsQuery matches documents recorded in the field-names postings.
type FieldExistsQuery struct {
	Field string
}

func (q FieldExistsQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	return constantMatches(leaf.Reader.FieldNames(q.Field).Clone(), 1), nil
}

func (q FieldExistsQuery) String() string { return "FieldExists(" + q.Field + ")" }

// BoostQuery multiplies the scores of Query by Boost.
type BoostQuery struct {
	Query Query
	Boost float32
}

func (q BoostQuery) Execute(leaf index.LeafContext, needsScores bool) (*Matches, error) {
	m, err := q.Query.Execute(leaf, needsScores)
	if err != nil || !needsScores {
		return m, err
	}
	if m.Scores == nil {
		m.Score *= q.Boost
		return m, nil
	}
	for doc, s := range m.Scores {
		m.Scores[doc] = s * q.Boost
	}
	return m, nil
}

func (q BoostQuery) String() string { return fmt.Sprintf("(%s)^%g", q.Query, q.Boost) }

// ConstantScoreQuery matches like Query and scores every match Score.
type ConstantScoreQuery struct {
	Query Query
	Score float32
}

func (q ConstantScoreQuery) Execute(leaf index.LeafContext, _ bool) (*Matches, error) {
	m, err := q.Query.Execute(leaf, false)
	if err != nil {
		return nil, err
	}
	return constantMatches(m.Docs, q.Score), nil
}

func (q ConstantScoreQuery) String() string { return fmt.Sprintf("ConstantScore(%s)", q.Query) }

// BooleanQuery combines clauses. Must and Filter clauses are required,
// MustNot clauses exclude, and at least MinimumShouldMatch Should clauses
// must match. With no required clause and MinimumShouldMatch 0, one Should
// clause is required. Scores sum the Must and Should scores.
type BooleanQuery struct {
	Must               []Query
	Should             []Query
	Filter             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

func (q BooleanQuery) Execute(leaf index.LeafContext, needsScores bool) (*Matches, error) {
	var docs *roaring.Bitmap
	var scored []*Matches

	intersect := func(m *Matches) {
		if docs == nil {
			docs = m.Docs
		} else {
			docs.And(m.Docs)
		}
	}

	for _, c := range q.Must {
		m, err := c.Execute(leaf, needsScores)
		if err != nil {
			return nil, err
		}
		intersect(m)
		scored = append(scored, m)
	}
	for _, c := range q.Filter {
		m, err := c.Execute(leaf, false)
		if err != nil {
			return nil, err
		}
		intersect(m)
	}

	minShould := q.MinimumShouldMatch
	if minShould == 0 && docs == nil && len(q.Should) > 0 {
		minShould = 1
	}

	if len(q.Should) > 0 {
		shouldMatches := make([]*Matches, 0, len(q.Should))
		for _, c := range q.Should {
			m, err := c.Execute(leaf, needsScores)
			if err != nil {
				return nil, err
			}
			shouldMatches = append(shouldMatches, m)
		}
		scored = append(scored, shouldMatches...)

		if minShould > 0 {
			required := atLeast(shouldMatches, minShould)
			if docs == nil {
				docs = required
			} else {
				docs.And(required)
			}
		}
	}

	if docs == nil {
		// Only MustNot clauses: match everything else.
		docs = roaring.New()
		docs.AddRange(0, uint64(leaf.Reader.MaxDoc()))
	}

	for _, c := range q.MustNot {
		m, err := c.Execute(leaf, false)
		if err != nil {
			return nil, err
		}
		docs.AndNot(m.Docs)
	}

	if !needsScores {
		return constantMatches(docs, 0), nil
	}

	scores := make(map[uint32]float32, docs.GetCardinality())
	it := docs.Iterator()
	for it.HasNext() {
		doc := it.Next()
		var s float32
		for _, m := range scored {
			if m.Docs.Contains(doc) {
				s += m.ScoreOf(doc)
			}
		}
		scores[doc] = s
	}
	return &Matches{Docs: docs, Scores: scores}, nil
}

// atLeast returns the documents present in at least n of ms.
func atLeast(ms []*Matches, n int) *roaring.Bitmap {
	if n <= 1 {
		out := roaring.New()
		for _, m := range ms {
			out.Or(m.Docs)
		}
		return out
	}
	if n > len(ms) {
		return roaring.New()
	}
	counts := make(map[uint32]int)
	for _, m := range ms {
		it := m.Docs.Iterator()
		for it.HasNext() {
			counts[it.Next()]++
		}
	}
	out := roaring.New()
	for doc, c := range counts {
		if c >= n {
			out.Add(doc)
		}
	}
	return out
}

func (q BooleanQuery) String() string {
	var parts []string
	add := func(prefix string, qs []Query) {
		for _, c := range qs {
			parts = append(parts, prefix+c.String())
		}
	}
	add("+", q.Must)
	add("", q.Should)
	add("#", q.Filter)
	add("-", q.MustNot)
	s := "(" + strings.Join(parts, " ") + ")"
	if q.MinimumShouldMatch > 0 {
		s += fmt.Sprintf("~%d", q.MinimumShouldMatch)
	}
	return s
}
