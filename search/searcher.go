package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/hsearch/index"
)

// Searcher runs queries over a reader on the calling goroutine.
type Searcher struct {
	reader *index.Reader
	logger *slog.Logger
}

// SearcherOption configures a Searcher or ParallelSearcher.
type SearcherOption func(*searcherOptions)

type searcherOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SearcherOption {
	return func(o *searcherOptions) {
		o.logger = l
	}
}

func applySearcherOptions(optFns []SearcherOption) searcherOptions {
	o := searcherOptions{}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// NewSearcher returns a searcher over reader.
func NewSearcher(reader *index.Reader, optFns ...SearcherOption) *Searcher {
	o := applySearcherOptions(optFns)
	return &Searcher{reader: reader, logger: o.logger}
}

// Reader returns the searched reader.
func (s *Searcher) Reader() *index.Reader { return s.reader }

// Search runs one pass of q into c and finishes c. Cancellation is only
// observed before the pass starts. On error the collector is left unfinished
// and its partial state must be discarded.
func (s *Searcher) Search(ctx context.Context, q Query, c Collector) error {
	if q == nil || c == nil {
		return fmt.Errorf("%w: nil query or collector", ErrPreconditionViolation)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, leaf := range s.reader.Leaves() {
		if err := searchLeaf(leaf, q, c); err != nil {
			s.logger.Debug("search pass aborted", "query", q.String(), "leaf", leaf.Ord, "error", err)
			return err
		}
	}
	return c.Finish()
}

// Count returns the number of live documents matching q.
func (s *Searcher) Count(ctx context.Context, q Query) (int, error) {
	c := NewTotalHitCountCollector()
	if err := s.Search(ctx, q, c); err != nil {
		return 0, err
	}
	return c.TotalHits(), nil
}

type leafScorer struct {
	matches *Matches
	doc     uint32
}

func (s *leafScorer) Score() float32 { return s.matches.ScoreOf(s.doc) }

func searchLeaf(leaf index.LeafContext, q Query, c Collector) error {
	needsScores := c.ScoreMode().NeedsScores()

	m, err := q.Execute(leaf, needsScores)
	if err != nil {
		return fmt.Errorf("search: execute %s on leaf %d: %w", q, leaf.Ord, err)
	}
	if d := leaf.Reader.Deleted(); !d.IsEmpty() {
		m.Docs.AndNot(d)
	}

	if err := c.SetNextReader(leaf); err != nil {
		return err
	}
	scorer := &leafScorer{matches: m}
	if sa, ok := c.(ScorerAware); ok && needsScores {
		sa.SetScorer(scorer)
	}

	it := m.Docs.Iterator()
	for it.HasNext() {
		doc := it.Next()
		scorer.doc = doc
		if err := c.Collect(int(doc)); err != nil {
			return err
		}
	}
	return nil
}
