package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hupe1980/hsearch/index"
)

// CollectorManager creates one collector per leaf and reduces them.
type CollectorManager[C Collector, R any] interface {
	NewCollector() (C, error)
	// Reduce receives the finished collectors in leaf order.
	Reduce(collectors []C) (R, error)
}

// ParallelSearcher searches leaves concurrently on a worker pool.
type ParallelSearcher struct {
	reader *index.Reader
	pool   *ants.Pool
	logger *slog.Logger
}

// NewParallelSearcher returns a searcher running leaves on pool. The pool is
// owned by the caller.
func NewParallelSearcher(reader *index.Reader, pool *ants.Pool, optFns ...SearcherOption) (*ParallelSearcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil worker pool", ErrPreconditionViolation)
	}
	o := applySearcherOptions(optFns)
	return &ParallelSearcher{reader: reader, pool: pool, logger: o.logger}, nil
}

// ParallelSearch runs q with one fresh collector per leaf, never shared
// between goroutines, and reduces them in leaf order. The first error in leaf
// order is returned and nothing is reduced.
func ParallelSearch[C Collector, R any](ctx context.Context, s *ParallelSearcher, q Query, m CollectorManager[C, R]) (R, error) {
	var zero R
	if q == nil || m == nil {
		return zero, fmt.Errorf("%w: nil query or collector manager", ErrPreconditionViolation)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	leaves := s.reader.Leaves()
	collectors := make([]C, len(leaves))
	for i := range leaves {
		c, err := m.NewCollector()
		if err != nil {
			return zero, err
		}
		collectors[i] = c
	}

	errs := make([]error, len(leaves))
	var wg sync.WaitGroup
	for i, leaf := range leaves {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := searchLeaf(leaf, q, collectors[i]); err != nil {
				errs[i] = err
				return
			}
			errs[i] = collectors[i].Finish()
		}
		if err := s.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("search: submit leaf %d: %w", leaf.Ord, err)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.logger.Debug("parallel search aborted", "query", q.String(), "leaf", i, "error", err)
			return zero, err
		}
	}
	return m.Reduce(collectors)
}

// DocumentReferenceManager reduces per-leaf reference collectors into one
// snapshot.
type DocumentReferenceManager struct {
	Resolver index.MetadataResolver
}

func (m DocumentReferenceManager) NewCollector() (*DocumentReferenceCollector, error) {
	return NewDocumentReferenceCollector(m.Resolver)
}

func (m DocumentReferenceManager) Reduce(cs []*DocumentReferenceCollector) (*DocumentReferences, error) {
	merged := make(map[int]DocumentReference)
	for _, c := range cs {
		refs, err := c.References()
		if err != nil {
			return nil, err
		}
		for doc, ref := range refs.byDoc {
			merged[doc] = ref
		}
	}
	return newDocumentReferences(merged), nil
}

// TotalHitCountManager sums per-leaf hit counts.
type TotalHitCountManager struct{}

func (TotalHitCountManager) NewCollector() (*TotalHitCountCollector, error) {
	return NewTotalHitCountCollector(), nil
}

func (TotalHitCountManager) Reduce(cs []*TotalHitCountCollector) (int, error) {
	total := 0
	for _, c := range cs {
		total += c.TotalHits()
	}
	return total, nil
}
