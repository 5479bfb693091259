package hsearch

import (
	"context"
	"errors"
	"maps"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/predicate"
	"github.com/hupe1980/hsearch/search"
	"github.com/hupe1980/hsearch/types"
)

func newPapersModel(t *testing.T, name string) *types.IndexModel {
	t.Helper()
	m := types.NewIndexModel(name)

	year, err := types.Year(codec.WithDocValues(codec.DocValuesEnabled), codec.WithStorage(codec.StorageEnabled))
	require.NoError(t, err)
	require.NoError(t, m.AddField("year", year))

	genre, err := types.Keyword(codec.WithDocValues(codec.DocValuesEnabled), codec.WithIndexNullAs("unknown"))
	require.NoError(t, err)
	require.NoError(t, m.AddField("genre", genre))

	score, err := types.Double(codec.WithStorage(codec.StorageEnabled))
	require.NoError(t, err)
	require.NoError(t, m.AddField("score", score))
	return m
}

func openBackend(t *testing.T, optFns ...Option) *Backend {
	t.Helper()
	b, err := Open(context.Background(), optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func createIndex(t *testing.T, b *Backend, model *types.IndexModel, docs map[string]map[string]any) *Index {
	t.Helper()
	ctx := context.Background()
	idx, err := b.CreateIndex(ctx, model, directory.NewMemory())
	require.NoError(t, err)
	for _, id := range slices.Sorted(maps.Keys(docs)) {
		require.NoError(t, idx.Add(ctx, id, docs[id]))
	}
	require.NoError(t, idx.Refresh())
	return idx
}

func ids(refs []search.DocumentReference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func TestBackend_SearchAcrossIndexes(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	createIndex(t, b, newPapersModel(t, "papers"), map[string]map[string]any{
		"1": {"year": 1905, "genre": "physics"},
		"2": {"year": 1915, "genre": "physics"},
		"3": {"year": 1905, "genre": nil},
	})
	createIndex(t, b, newPapersModel(t, "books"), map[string]map[string]any{
		"a": {"year": 1905, "genre": "novel"},
		"b": {"year": 1960},
	})

	scope, err := b.Scope("papers", "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"papers", "books"}, scope.IndexNames())

	q, err := scope.Match("year", 1905)
	require.NoError(t, err)
	res, err := scope.Search(ctx, SearchRequest{Query: q, Projections: []string{"year"}})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalHits)
	assert.Equal(t, []string{"papers/1", "papers/3", "books/a"}, ids(res.References))
	require.Len(t, res.Projections, 3)
	for _, p := range res.Projections {
		assert.Equal(t, 1905, p["year"])
	}

	t.Run("null replacement", func(t *testing.T) {
		q, err := scope.Match("genre", nil)
		require.NoError(t, err)
		res, err := scope.Search(ctx, SearchRequest{Query: q})
		require.NoError(t, err)
		assert.Equal(t, []string{"papers/3", "books/b"}, ids(res.References))
	})

	t.Run("range excludes nulls", func(t *testing.T) {
		q, err := scope.Range("genre", Bounds{From: "a", To: "z"})
		require.NoError(t, err)
		res, err := scope.Search(ctx, SearchRequest{Query: q})
		require.NoError(t, err)
		assert.Equal(t, []string{"papers/1", "papers/2", "books/a"}, ids(res.References))
	})

	t.Run("limit", func(t *testing.T) {
		res, err := scope.Search(ctx, SearchRequest{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, res.TotalHits)
		assert.Equal(t, []string{"papers/1", "papers/2"}, ids(res.References))
	})

	t.Run("aggregations", func(t *testing.T) {
		res, err := scope.Search(ctx, SearchRequest{
			Aggregations: []AggregationRequest{
				{Name: "genres", Path: "genre", Kind: AggregationTerms},
				{Name: "decades", Path: "year", Kind: AggregationRange, Ranges: []types.RangeSpec{
					{Key: "early", To: 1910},
					{Key: "late", From: 1910},
				}},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, []types.TermCount{{Term: "physics", Count: 2}, {Term: "novel", Count: 1}}, res.Aggregations["genres"])
		assert.Equal(t, []types.RangeCount{{Key: "early", Count: 3}, {Key: "late", Count: 2}}, res.Aggregations["decades"])
	})

	t.Run("sort by score", func(t *testing.T) {
		year, err := scope.Match("year", 1905)
		require.NoError(t, err)
		genre, err := scope.Match("genre", "physics")
		require.NoError(t, err)

		res, err := scope.Search(ctx, SearchRequest{
			Query:       search.BooleanQuery{Should: []search.Query{year, genre}},
			SortByScore: true,
			Limit:       2,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalHits)
		assert.Equal(t, "papers/1", res.References[0].String())
		assert.Equal(t, []float32{2, 1}, res.Scores)
	})
}

func TestScope_FieldCompatibility(t *testing.T) {
	b := openBackend(t)

	year := types.NewIndexModel("years")
	yt, err := types.Year()
	require.NoError(t, err)
	require.NoError(t, year.AddField("published", yt))
	createIndex(t, b, year, nil)

	integer := types.NewIndexModel("integers")
	it, err := types.Integer()
	require.NoError(t, err)
	require.NoError(t, integer.AddField("published", it))
	createIndex(t, b, integer, nil)

	createIndex(t, b, newPapersModel(t, "papers"), nil)

	scope, err := b.Scope("years", "integers", "papers")
	require.NoError(t, err)

	_, err = scope.Field("published", convert.DslConverterEnabled)
	require.ErrorIs(t, err, ErrDslIncompatible)
	var dsl *predicate.DslIncompatibilityError
	require.True(t, errors.As(err, &dsl))
	assert.Equal(t, "published", dsl.Path)
	assert.Equal(t, []string{"years", "integers"}, dsl.Indexes)

	// Defined in a single index of the scope.
	f, err := scope.Field("year", convert.DslConverterEnabled)
	require.NoError(t, err)
	assert.Equal(t, predicate.FactoryKindNumeric, f.Kind())

	_, err = scope.Field("title", convert.DslConverterEnabled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScope_ConverterOnlyDifferenceAllowedWithoutDsl(t *testing.T) {
	b := openBackend(t)

	newModel := func(name, converter string) *types.IndexModel {
		c, err := codec.NewInteger()
		require.NoError(t, err)
		ft, err := types.NewNumeric[int32, int32](c, convert.NewFunc(converter, func(v int) (int32, error) {
			return int32(v), nil
		}))
		require.NoError(t, err)
		m := types.NewIndexModel(name)
		require.NoError(t, m.AddField("rank", ft))
		return m
	}
	createIndex(t, b, newModel("a", "plain"), nil)
	createIndex(t, b, newModel("b", "shifted"), nil)

	scope, err := b.Scope("a", "b")
	require.NoError(t, err)

	_, err = scope.Field("rank", convert.DslConverterEnabled)
	assert.ErrorIs(t, err, ErrDslIncompatible)

	_, err = scope.Field("rank", convert.DslConverterDisabled)
	assert.NoError(t, err)
}

func TestBackend_UpdateDeleteAndCommit(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	metrics := &BasicMetricsCollector{}

	b := openBackend(t, WithMetricsCollector(metrics), WithMaxBufferedDocs(2))
	idx, err := b.CreateIndex(ctx, newPapersModel(t, "papers"), dir)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, "1", map[string]any{"year": 1905}))
	require.NoError(t, idx.Add(ctx, "2", map[string]any{"year": 1915}))
	require.NoError(t, idx.Add(ctx, "3", map[string]any{"year": 1921}))
	require.NoError(t, idx.Update(ctx, "2", map[string]any{"year": 1916}))
	deleted, err := idx.Delete(ctx, "3")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = idx.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	// Not yet refreshed.
	scope, err := b.Scope("papers")
	require.NoError(t, err)
	res, err := scope.Search(ctx, SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalHits)

	require.NoError(t, idx.Commit(ctx))
	require.NoError(t, b.Close())

	reopened := openBackend(t)
	idx, err = reopened.CreateIndex(ctx, newPapersModel(t, "papers"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Stats().NumDocs)

	scope, err = reopened.Scope("papers")
	require.NoError(t, err)
	q, err := scope.Match("year", 1916)
	require.NoError(t, err)
	res, err = scope.Search(ctx, SearchRequest{Query: q, Projections: []string{"year"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"papers/2"}, ids(res.References))
	assert.Equal(t, 1916, res.Projections[0]["year"])

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.AddCount)
	assert.Equal(t, int64(1), stats.UpdateCount)
	assert.Equal(t, int64(2), stats.DeleteCount)
	assert.Equal(t, int64(1), stats.CommitCount)
	assert.Equal(t, int64(1), stats.SearchCount)
}

func TestBackend_CommitAndReopenKeywords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	for _, strategy := range []directory.FileSystemAccessStrategyName{directory.Simple, directory.Nio} {
		t.Run(strategy.String(), func(t *testing.T) {
			path := root + "/" + strategy.String()
			dir, err := directory.NewFS(path, strategy)
			require.NoError(t, err)

			b := openBackend(t)
			idx, err := b.CreateIndex(ctx, newPapersModel(t, "papers"), dir)
			require.NoError(t, err)
			for i, genre := range []string{"novel", "physics", "novel", "novel", "poetry"} {
				require.NoError(t, idx.Add(ctx, string(rune('a'+i)), map[string]any{"year": 1900 + i, "genre": genre}))
			}
			require.NoError(t, idx.Add(ctx, "f", map[string]any{"year": 1950}))
			require.NoError(t, idx.Commit(ctx))
			require.NoError(t, b.Close())

			dir, err = directory.NewFS(path, strategy)
			require.NoError(t, err)
			defer dir.Close()

			reopened := openBackend(t)
			idx, err = reopened.CreateIndex(ctx, newPapersModel(t, "papers"), dir)
			require.NoError(t, err)
			assert.Equal(t, 6, idx.Stats().NumDocs)

			scope, err := reopened.Scope("papers")
			require.NoError(t, err)

			q, err := scope.Match("genre", "novel")
			require.NoError(t, err)
			res, err := scope.Search(ctx, SearchRequest{Query: q})
			require.NoError(t, err)
			assert.Equal(t, []string{"papers/a", "papers/c", "papers/d"}, ids(res.References))

			q, err = scope.Match("genre", nil)
			require.NoError(t, err)
			res, err = scope.Search(ctx, SearchRequest{Query: q})
			require.NoError(t, err)
			assert.Equal(t, []string{"papers/f"}, ids(res.References))

			q, err = scope.Exists("genre")
			require.NoError(t, err)
			res, err = scope.Search(ctx, SearchRequest{Query: q})
			require.NoError(t, err)
			assert.Equal(t, 6, res.TotalHits, "null replacements are indexed")

			q, err = scope.Range("genre", Bounds{From: "o", To: "q"})
			require.NoError(t, err)
			res, err = scope.Search(ctx, SearchRequest{Query: q})
			require.NoError(t, err)
			assert.Equal(t, []string{"papers/b", "papers/e"}, ids(res.References))
		})
	}
}

func TestBackend_Aliases(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)
	createIndex(t, b, newPapersModel(t, "papers-v2"), map[string]map[string]any{
		"1": {"year": 1905},
	})

	require.NoError(t, b.Alias("papers", "papers-v2"))
	assert.ErrorIs(t, b.Alias("other", "missing"), ErrNotFound)
	assert.ErrorIs(t, b.Alias("papers-v2", "papers-v2"), ErrIndexExists)

	idx, err := b.Index("papers")
	require.NoError(t, err)
	assert.Equal(t, "papers-v2", idx.Name())

	scope, err := b.Scope("papers", "papers-v2")
	require.NoError(t, err)
	res, err := scope.Search(ctx, SearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"papers-v2/1"}, ids(res.References))

	_, err = b.CreateIndex(ctx, newPapersModel(t, "papers"), directory.NewMemory())
	assert.ErrorIs(t, err, ErrIndexExists)
}

func TestBackend_ParallelSearch(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t, WithSearchWorkers(2))
	createIndex(t, b, newPapersModel(t, "a"), map[string]map[string]any{
		"1": {"year": 1905}, "2": {"year": 1906},
	})
	createIndex(t, b, newPapersModel(t, "b"), map[string]map[string]any{
		"3": {"year": 1905},
	})

	scope, err := b.Scope("a", "b")
	require.NoError(t, err)
	q, err := scope.Match("year", 1905)
	require.NoError(t, err)

	res, err := scope.Search(ctx, SearchRequest{Query: q})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalHits)
	assert.Equal(t, []string{"a/1", "b/3"}, ids(res.References))
}

func TestBackend_Errors(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)
	idx := createIndex(t, b, newPapersModel(t, "papers"), nil)

	err := idx.Add(ctx, "1", map[string]any{"score": math.NaN()})
	require.ErrorIs(t, err, ErrEncoding)
	var ie *IndexError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "1", ie.ID)

	assert.ErrorIs(t, idx.Add(ctx, "2", map[string]any{"title": "x"}), ErrNotFound)
	assert.ErrorIs(t, idx.Add(ctx, "3", map[string]any{"year": "soon"}), ErrInvalidArgument)

	_, err = b.Index("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Scope()
	assert.ErrorIs(t, err, ErrPreconditionViolation)
	_, err = b.CreateIndex(ctx, nil, directory.NewMemory())
	assert.ErrorIs(t, err, ErrPreconditionViolation)

	scope, err := b.Scope("papers")
	require.NoError(t, err)
	_, err = scope.Search(ctx, SearchRequest{Limit: -1})
	assert.ErrorIs(t, err, ErrPreconditionViolation)
	_, err = scope.Search(ctx, SearchRequest{Aggregations: []AggregationRequest{{Name: "s", Path: "score", Kind: AggregationTerms}}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = scope.Search(cancelled, SearchRequest{})
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, b.Close())
	_, err = b.Scope("papers")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, idx.Commit(ctx), ErrClosed)
}
