package search

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
)

type testDoc struct {
	id    string
	match bool
	year  int64
	genre string
}

func newSegment(t *testing.T, name string, docs []testDoc) *index.SegmentReader {
	t.Helper()
	w := index.NewSegmentWriter()
	for _, d := range docs {
		b := document.NewBuilder(d.id)
		if d.match {
			b.AddTerm("status", "match")
		}
		b.AddStored(document.StoredStringField("title", "title "+d.id))
		b.AddStored(document.StoredInt64Field("year", d.year))
		require.NoError(t, b.AddNumericDocValue("year", d.year))
		b.AddPoint("year", binary.BigEndian.AppendUint64(nil, uint64(d.year)))
		if d.genre != "" {
			require.NoError(t, b.AddBinaryDocValue("genre", []byte(d.genre)))
			b.AddTerm("genre", d.genre)
		} else {
			b.AddFieldName("untagged")
		}
		doc, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, w.Add(doc))
	}
	seg, err := w.Flush(name, index.CompressionFast)
	require.NoError(t, err)
	return index.NewSegmentReader(seg, nil)
}

func matchAt(n int, ids map[int]string) []testDoc {
	docs := make([]testDoc, n)
	for i := range docs {
		docs[i] = testDoc{id: fmt.Sprintf("x%d", i), year: int64(1900 + i)}
		if id, ok := ids[i]; ok {
			docs[i] = testDoc{id: id, match: true, year: int64(1900 + i)}
		}
	}
	return docs
}

func TestDocumentReferenceCollector_SingleSegment(t *testing.T) {
	seg := newSegment(t, "_0", matchAt(6, map[int]string{0: "1", 2: "2", 5: "3"}))
	reader := index.NewReader("papers", seg)

	c, err := DocumentReferenceCollectorFactory(NewCollectorExecutionContext(reader, 0))
	require.NoError(t, err)
	require.NoError(t, NewSearcher(reader).Search(context.Background(), TermQuery{Field: "status", Term: "match"}, c))

	drc := c.(*DocumentReferenceCollector)
	refs, err := drc.References()
	require.NoError(t, err)

	assert.Equal(t, []DocumentReference{
		{IndexName: "papers", ID: "1"},
		{IndexName: "papers", ID: "2"},
		{IndexName: "papers", ID: "3"},
	}, refs.Ordered())
	assert.Equal(t, []int{0, 2, 5}, refs.Docs())

	ref, ok := drc.Get(5)
	require.True(t, ok)
	assert.Equal(t, "3", ref.ID)

	_, ok = drc.Get(1)
	assert.False(t, ok)
	assert.Equal(t, CompleteNoScores, drc.ScoreMode())
}

func TestDocumentReferenceCollector_TwoIndexes(t *testing.T) {
	segA := newSegment(t, "_a", matchAt(10, map[int]string{3: "a3"}))
	segB := newSegment(t, "_b", matchAt(4, map[int]string{1: "b1"}))
	reader := index.NewMultiReader(index.NewReader("idxA", segA), index.NewReader("idxB", segB))

	c, err := NewDocumentReferenceCollector(reader)
	require.NoError(t, err)
	require.NoError(t, NewSearcher(reader).Search(context.Background(), TermQuery{Field: "status", Term: "match"}, c))

	refs, err := c.References()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 11}, refs.Docs())

	ref, ok := refs.Get(3)
	require.True(t, ok)
	assert.Equal(t, DocumentReference{IndexName: "idxA", ID: "a3"}, ref)
	ref, ok = refs.Get(11)
	require.True(t, ok)
	assert.Equal(t, DocumentReference{IndexName: "idxB", ID: "b1"}, ref)
}

func TestDocumentReferenceCollector_MonotonicGlobalNumbers(t *testing.T) {
	reader := index.NewMultiReader(
		index.NewReader("a", newSegment(t, "_a", matchAt(7, map[int]string{1: "1", 6: "2"}))),
		index.NewReader("b", newSegment(t, "_b", matchAt(3, nil))),
		index.NewReader("c", newSegment(t, "_c", matchAt(5, map[int]string{0: "3", 4: "4"}))),
	)

	rec := &recordingCollector{}
	require.NoError(t, NewSearcher(reader).Search(context.Background(), TermQuery{Field: "status", Term: "match"}, rec))
	assert.Equal(t, []int{1, 6, 10, 14}, rec.global)
	assert.IsNonDecreasing(t, rec.global)
}

type recordingCollector struct {
	base   int
	global []int
}

func (r *recordingCollector) ScoreMode() ScoreMode { return CompleteNoScores }

func (r *recordingCollector) SetNextReader(leaf index.LeafContext) error {
	r.base = leaf.DocBase
	return nil
}

func (r *recordingCollector) Collect(doc int) error {
	r.global = append(r.global, r.base+doc)
	return nil
}

func (r *recordingCollector) Finish() error { return nil }

type failingResolver struct{}

func (failingResolver) ResolveIndexName(leaf index.LeafContext) (string, error) {
	return "", &index.SegmentResolutionError{Ord: leaf.Ord}
}

func TestDocumentReferenceCollector_Failures(t *testing.T) {
	_, err := NewDocumentReferenceCollector(nil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)

	c, err := NewDocumentReferenceCollector(failingResolver{})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Collect(0), ErrCollectorState)

	seg := newSegment(t, "_0", matchAt(2, map[int]string{0: "1"}))
	reader := index.NewReader("papers", seg)
	err = NewSearcher(reader).Search(context.Background(), MatchAllQuery{}, c)
	assert.ErrorIs(t, err, index.ErrSegmentResolution)

	_, err = c.References()
	assert.ErrorIs(t, err, ErrCollectorState)

	ok, err := NewDocumentReferenceCollector(reader)
	require.NoError(t, err)
	require.NoError(t, ok.SetNextReader(reader.Leaves()[0]))
	require.NoError(t, ok.Finish())
	assert.ErrorIs(t, ok.Collect(0), ErrCollectorState)
	assert.ErrorIs(t, ok.SetNextReader(reader.Leaves()[0]), ErrCollectorState)
	assert.ErrorIs(t, ok.Finish(), ErrCollectorState)
}

func TestSearcher_CancelledBeforePass(t *testing.T) {
	reader := index.NewReader("papers", newSegment(t, "_0", matchAt(2, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSearcher(reader).Search(ctx, MatchAllQuery{}, NewTotalHitCountCollector())
	assert.True(t, errors.Is(err, context.Canceled))

	err = NewSearcher(reader).Search(context.Background(), nil, NewTotalHitCountCollector())
	assert.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestSearcher_DeletedDocumentsHidden(t *testing.T) {
	w := index.NewIndexWriter("papers", nil, index.WithMaxBufferedDocs(0))
	for i := 0; i < 4; i++ {
		d, err := document.NewBuilder(fmt.Sprint(i)).Build()
		require.NoError(t, err)
		require.NoError(t, w.Add(d))
	}
	require.NoError(t, w.Flush())
	_, err := w.DeleteByID("2")
	require.NoError(t, err)

	reader, err := w.Reader()
	require.NoError(t, err)

	c, err := NewDocumentReferenceCollector(reader)
	require.NoError(t, err)
	require.NoError(t, NewSearcher(reader).Search(context.Background(), MatchAllQuery{}, c))
	refs, err := c.References()
	require.NoError(t, err)

	var ids []string
	for _, r := range refs.Ordered() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"0", "1", "3"}, ids)
}

func TestQueries(t *testing.T) {
	seg := newSegment(t, "_0", []testDoc{
		{id: "a", match: true, year: 1990, genre: "sf"},
		{id: "b", match: true, year: 2000, genre: "crime"},
		{id: "c", year: 2010, genre: "sf"},
		{id: "d", year: 2020},
	})
	reader := index.NewReader("books", seg)
	s := NewSearcher(reader)
	ctx := context.Background()

	year := func(v int64) []byte { return binary.BigEndian.AppendUint64(nil, uint64(v)) }

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"match all", MatchAllQuery{}, 4},
		{"match none", MatchNoneQuery{Reason: "empty range"}, 0},
		{"term", TermQuery{Field: "genre", Term: "sf"}, 2},
		{"missing term", TermQuery{Field: "genre", Term: "poetry"}, 0},
		{"range", PointRangeQuery{Field: "year", Lower: year(2000), Upper: year(2010)}, 2},
		{"open range", PointRangeQuery{Field: "year", Lower: year(2001)}, 2},
		{"doc values exists", DocValuesExistsQuery{Field: "genre"}, 3},
		{"field exists", FieldExistsQuery{Field: "untagged"}, 1},
		{"must", BooleanQuery{Must: []Query{TermQuery{Field: "genre", Term: "sf"}, TermQuery{Field: "status", Term: "match"}}}, 1},
		{"should", BooleanQuery{Should: []Query{TermQuery{Field: "genre", Term: "sf"}, TermQuery{Field: "genre", Term: "crime"}}}, 3},
		{"min should", BooleanQuery{MinimumShouldMatch: 2, Should: []Query{TermQuery{Field: "genre", Term: "sf"}, TermQuery{Field: "status", Term: "match"}}}, 1},
		{"must not only", BooleanQuery{MustNot: []Query{TermQuery{Field: "genre", Term: "sf"}}}, 2},
		{"filter", BooleanQuery{Filter: []Query{DocValuesExistsQuery{Field: "genre"}}, MustNot: []Query{TermQuery{Field: "status", Term: "match"}}}, 1},
		{"boost", BoostQuery{Query: TermQuery{Field: "genre", Term: "sf"}, Boost: 2}, 2},
		{"constant", ConstantScoreQuery{Query: MatchAllQuery{}, Score: 3}, 4},
		{"term range", TermRangeQuery{Field: "genre", Lower: strPtr("a"), Upper: strPtr("sf"), IncludeLower: true}, 1},
		{"term range inclusive", TermRangeQuery{Field: "genre", Lower: strPtr("crime"), Upper: strPtr("sf"), IncludeLower: true, IncludeUpper: true}, 3},
		{"term range exclusive", TermRangeQuery{Field: "genre", Lower: strPtr("crime"), Upper: strPtr("sf")}, 0},
		{"term range open", TermRangeQuery{Field: "genre", Lower: strPtr("d")}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.NotEmpty(t, tt.query.String())
		})
	}
}

func strPtr(s string) *string { return &s }

func TestTopDocsCollector_ScoresAndOrder(t *testing.T) {
	seg := newSegment(t, "_0", []testDoc{
		{id: "a", match: true, year: 1, genre: "sf"},
		{id: "b", year: 2, genre: "sf"},
		{id: "c", match: true, year: 3},
	})
	reader := index.NewReader("books", seg)

	q := BooleanQuery{Should: []Query{
		BoostQuery{Query: TermQuery{Field: "genre", Term: "sf"}, Boost: 2},
		TermQuery{Field: "status", Term: "match"},
	}}
	top := NewTopDocsCollector(2)
	require.NoError(t, NewSearcher(reader).Search(context.Background(), q, top))

	assert.Equal(t, 3, top.TotalHits())
	assert.Equal(t, []ScoreDoc{{Doc: 0, Score: 3}, {Doc: 1, Score: 2}}, top.TopDocs())
}

func TestStoredFieldsAndAggregations(t *testing.T) {
	seg := newSegment(t, "_0", []testDoc{
		{id: "a", year: 1990, genre: "sf"},
		{id: "b", year: 2000, genre: "crime"},
		{id: "c", year: 2010, genre: "sf"},
		{id: "d", year: 2020},
	})
	reader := index.NewReader("books", seg)

	stored := NewStoredFieldsCollector("title")
	terms := NewTermsAggregationCollector("genre", 0)
	lo, mid := int64(2000), int64(2015)
	ranges := NewRangeAggregationCollector("year", func(v int64) int64 { return v },
		Range[int64]{Key: "old", Upper: &lo},
		Range[int64]{Key: "new", Lower: &lo, Upper: &mid},
		Range[int64]{Key: "future", Lower: &mid},
	)
	total := NewTotalHitCountCollector()

	multi, err := NewMultiCollector(stored, terms, ranges, total)
	require.NoError(t, err)
	assert.Equal(t, CompleteNoScores, multi.ScoreMode())
	require.NoError(t, NewSearcher(reader).Search(context.Background(), MatchAllQuery{}, multi))

	fields, ok := stored.Get(1)
	require.True(t, ok)
	require.Len(t, fields, 1)
	title, _ := fields[0].AsString()
	assert.Equal(t, "title b", title)

	assert.Equal(t, []TermBucket{{Term: "sf", Count: 2}, {Term: "crime", Count: 1}}, terms.Buckets())

	buckets := ranges.Buckets()
	require.Len(t, buckets, 3)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 2, buckets[1].Count)
	assert.Equal(t, 1, buckets[2].Count)

	assert.Equal(t, 4, total.TotalHits())

	_, err = NewMultiCollector(total, nil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestParallelSearch(t *testing.T) {
	reader := index.NewMultiReader(
		index.NewReader("idxA", newSegment(t, "_a", matchAt(10, map[int]string{3: "a3", 9: "a9"}))),
		index.NewReader("idxB", newSegment(t, "_b", matchAt(4, map[int]string{1: "b1"}))),
		index.NewReader("idxC", newSegment(t, "_c", matchAt(2, nil))),
	)

	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	ps, err := NewParallelSearcher(reader, pool)
	require.NoError(t, err)

	q := TermQuery{Field: "status", Term: "match"}
	refs, err := ParallelSearch[*DocumentReferenceCollector, *DocumentReferences](context.Background(), ps, q, DocumentReferenceManager{Resolver: reader})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 9, 11}, refs.Docs())
	assert.Equal(t, "idxB", refs.Ordered()[2].IndexName)

	total, err := ParallelSearch[*TotalHitCountCollector, int](context.Background(), ps, q, TotalHitCountManager{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, err = ParallelSearch[*DocumentReferenceCollector, *DocumentReferences](context.Background(), ps, q, DocumentReferenceManager{Resolver: failingResolver{}})
	assert.ErrorIs(t, err, index.ErrSegmentResolution)

	_, err = NewParallelSearcher(reader, nil)
	assert.ErrorIs(t, err, ErrPreconditionViolation)
}
