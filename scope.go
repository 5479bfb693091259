package hsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/predicate"
	"github.com/hupe1980/hsearch/search"
	"github.com/hupe1980/hsearch/types"
)

// Scope is a point-in-time view over one or more indexes. Queries built
// through a scope are checked to mean the same thing in every index.
type Scope struct {
	backend *Backend
	indexes []*Index
	reader  *index.Reader
}

func newScope(b *Backend, members []*Index) *Scope {
	readers := make([]*index.Reader, len(members))
	for i, m := range members {
		readers[i] = m.snapshot()
	}
	return &Scope{backend: b, indexes: members, reader: index.NewMultiReader(readers...)}
}

// IndexNames returns the concrete names of the indexes in the scope.
func (s *Scope) IndexNames() []string {
	names := make([]string, len(s.indexes))
	for i, idx := range s.indexes {
		names[i] = idx.name
	}
	return names
}

// Reader returns the composite reader the scope searches.
func (s *Scope) Reader() *index.Reader { return s.reader }

// Field returns the predicate factory of path. The field may be missing
// from some indexes of the scope, but every index defining it must build
// the same predicates under dsl; otherwise the error wraps a
// *predicate.DslIncompatibilityError naming those indexes.
func (s *Scope) Field(path string, dsl convert.DslConverter) (predicate.Factory, error) {
	ft, err := s.fieldType(path, dsl)
	if err != nil {
		return nil, err
	}
	return ft.PredicateFactory(), nil
}

func (s *Scope) fieldType(path string, dsl convert.DslConverter) (types.FieldType, error) {
	var (
		first        types.FieldType
		defining     []string
		incompatible bool
	)
	for _, idx := range s.indexes {
		ft, ok := idx.model.Field(path)
		if !ok {
			continue
		}
		defining = append(defining, idx.name)
		if first == nil {
			first = ft
			continue
		}
		if !first.PredicateFactory().IsDslCompatibleWith(ft.PredicateFactory(), dsl) {
			incompatible = true
		}
	}

	if first == nil {
		return nil, translateError(fmt.Errorf("%w: %s", types.ErrUnknownField, path))
	}
	if incompatible {
		return nil, translateError(&predicate.DslIncompatibilityError{Path: path, Indexes: defining})
	}
	return first, nil
}

// Match builds a query matching documents whose field equals v. A nil v
// matches documents indexed with the field's null replacement.
func (s *Scope) Match(path string, v any) (search.Query, error) {
	f, err := s.Field(path, convert.DslConverterEnabled)
	if err != nil {
		return nil, err
	}
	b := f.Match(path)
	if err := b.Value(v, convert.DslConverterEnabled); err != nil {
		return nil, translateError(err)
	}
	q, err := b.Build()
	return q, translateError(err)
}

// Bounds delimit a range query. A nil bound is open.
type Bounds struct {
	From        any
	To          any
	ExcludeFrom bool
	ExcludeTo   bool
}

// Range builds a query matching documents whose field lies within r.
func (s *Scope) Range(path string, r Bounds) (search.Query, error) {
	f, err := s.Field(path, convert.DslConverterEnabled)
	if err != nil {
		return nil, err
	}
	b := f.Range(path)
	if r.From != nil {
		if err := b.Lower(r.From, r.ExcludeFrom, convert.DslConverterEnabled); err != nil {
			return nil, translateError(err)
		}
	}
	if r.To != nil {
		if err := b.Upper(r.To, r.ExcludeTo, convert.DslConverterEnabled); err != nil {
			return nil, translateError(err)
		}
	}
	q, err := b.Build()
	return q, translateError(err)
}

// Exists builds a query matching documents with a value for the field.
func (s *Scope) Exists(path string) (search.Query, error) {
	f, err := s.Field(path, convert.DslConverterEnabled)
	if err != nil {
		return nil, err
	}
	q, err := f.Exists(path).Build()
	return q, translateError(err)
}

// AggregationKind selects the aggregation computed by an AggregationRequest.
type AggregationKind int

const (
	// AggregationTerms counts documents per distinct value.
	AggregationTerms AggregationKind = iota
	// AggregationRange counts documents per range of values.
	AggregationRange
)

// AggregationRequest asks for one aggregation over the matches of a search.
type AggregationRequest struct {
	Name   string
	Path   string
	Kind   AggregationKind
	Size   int // terms only; 0 returns every term
	Ranges []types.RangeSpec
}

// SearchRequest describes one search.
type SearchRequest struct {
	// Query selects the documents; nil matches all.
	Query search.Query
	// Limit caps the returned references; 0 returns all matches.
	Limit int
	// SortByScore orders references by score instead of index order.
	SortByScore bool
	// Projections lists the stored fields to decode for each reference.
	Projections  []string
	Aggregations []AggregationRequest
}

func (r SearchRequest) referencesOnly() bool {
	return !r.SortByScore && len(r.Projections) == 0 && len(r.Aggregations) == 0
}

// Result is the outcome of a search.
type Result struct {
	TotalHits  int
	References []search.DocumentReference
	// Scores is aligned with References when sorting by score.
	Scores []float32
	// Projections is aligned with References when projections were requested.
	Projections []map[string]any
	// Aggregations maps request names to []types.TermCount or
	// []types.RangeCount.
	Aggregations map[string]any
}

// Search runs req against the scope.
func (s *Scope) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	start := time.Now()
	res, err := s.search(ctx, req)
	err = translateError(err)

	hits := 0
	if res != nil {
		hits = res.TotalHits
	}
	s.backend.opts.metricsCollector.RecordSearch(len(s.indexes), hits, time.Since(start), err)
	s.backend.opts.logger.LogSearch(ctx, s.IndexNames(), hits, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Scope) search(ctx context.Context, req SearchRequest) (*Result, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrPreconditionViolation, req.Limit)
	}
	q := req.Query
	if q == nil {
		q = search.MatchAllQuery{}
	}

	if s.backend.pool != nil && req.referencesOnly() {
		return s.searchParallel(ctx, q, req.Limit)
	}

	refs, err := search.NewDocumentReferenceCollector(s.reader)
	if err != nil {
		return nil, err
	}
	total := search.NewTotalHitCountCollector()
	children := []search.Collector{refs, total}

	var top *search.TopDocsCollector
	if req.SortByScore {
		n := req.Limit
		if n == 0 {
			n = s.reader.MaxDoc()
		}
		top = search.NewTopDocsCollector(n)
		children = append(children, top)
	}

	var stored *search.StoredFieldsCollector
	if len(req.Projections) > 0 {
		stored = search.NewStoredFieldsCollector(req.Projections...)
		children = append(children, stored)
	}

	aggs := make(map[string]*types.Aggregation, len(req.Aggregations))
	for _, a := range req.Aggregations {
		agg, err := s.aggregation(a)
		if err != nil {
			return nil, err
		}
		aggs[a.Name] = agg
		children = append(children, agg.Collector)
	}

	multi, err := search.NewMultiCollector(children...)
	if err != nil {
		return nil, err
	}
	searcher := search.NewSearcher(s.reader, search.WithLogger(s.backend.opts.logger.Logger))
	if err := searcher.Search(ctx, q, multi); err != nil {
		return nil, err
	}

	snapshot, err := refs.References()
	if err != nil {
		return nil, err
	}
	res := &Result{TotalHits: total.TotalHits()}

	var docs []int
	if top != nil {
		for _, sd := range top.TopDocs() {
			docs = append(docs, sd.Doc)
			res.Scores = append(res.Scores, sd.Score)
		}
	} else {
		docs = limitDocs(snapshot.Docs(), req.Limit)
	}

	for _, doc := range docs {
		ref, ok := snapshot.Get(doc)
		if !ok {
			return nil, fmt.Errorf("hsearch: no reference collected for document %d", doc)
		}
		res.References = append(res.References, ref)
		if stored != nil {
			proj, err := s.project(ref.IndexName, stored, doc)
			if err != nil {
				return nil, err
			}
			res.Projections = append(res.Projections, proj)
		}
	}

	if len(aggs) > 0 {
		res.Aggregations = make(map[string]any, len(aggs))
		for name, agg := range aggs {
			res.Aggregations[name] = agg.Result()
		}
	}
	return res, nil
}

func (s *Scope) searchParallel(ctx context.Context, q search.Query, limit int) (*Result, error) {
	ps, err := search.NewParallelSearcher(s.reader, s.backend.pool, search.WithLogger(s.backend.opts.logger.Logger))
	if err != nil {
		return nil, err
	}
	snapshot, err := search.ParallelSearch[*search.DocumentReferenceCollector, *search.DocumentReferences](ctx, ps, q, search.DocumentReferenceManager{Resolver: s.reader})
	if err != nil {
		return nil, err
	}

	res := &Result{TotalHits: snapshot.Len()}
	for _, doc := range limitDocs(snapshot.Docs(), limit) {
		ref, _ := snapshot.Get(doc)
		res.References = append(res.References, ref)
	}
	return res, nil
}

func (s *Scope) aggregation(a AggregationRequest) (*types.Aggregation, error) {
	if a.Name == "" {
		return nil, fmt.Errorf("%w: aggregation on %s has no name", ErrPreconditionViolation, a.Path)
	}
	ft, err := s.fieldType(a.Path, convert.DslConverterEnabled)
	if err != nil {
		return nil, err
	}
	switch a.Kind {
	case AggregationTerms:
		return ft.TermsAggregation(a.Path, a.Size)
	case AggregationRange:
		return ft.RangeAggregation(a.Path, a.Ranges)
	default:
		return nil, fmt.Errorf("%w: aggregation kind %d", ErrPreconditionViolation, a.Kind)
	}
}

// project decodes the stored fields of doc with the field types of the
// index it belongs to.
func (s *Scope) project(indexName string, stored *search.StoredFieldsCollector, doc int) (map[string]any, error) {
	var model *types.IndexModel
	for _, idx := range s.indexes {
		if idx.name == indexName {
			model = idx.model
			break
		}
	}
	if model == nil {
		return nil, fmt.Errorf("%w: index %s", ErrNotFound, indexName)
	}

	fields, _ := stored.Get(doc)
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		ft, ok := model.Field(f.Name)
		if !ok {
			continue
		}
		v, err := ft.Project(f)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func limitDocs(docs []int, limit int) []int {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}
