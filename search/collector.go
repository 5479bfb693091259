package search

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/hsearch/index"
)

// ScoreMode tells the searcher what a collector needs from matches.
type ScoreMode int

const (
	// CompleteNoScores visits every match and never reads scores.
	CompleteNoScores ScoreMode = iota
	// Complete visits every match and reads scores.
	Complete
)

// NeedsScores reports whether scores must be computed.
func (m ScoreMode) NeedsScores() bool { return m == Complete }

func (m ScoreMode) String() string {
	switch m {
	case CompleteNoScores:
		return "COMPLETE_NO_SCORES"
	case Complete:
		return "COMPLETE"
	default:
		return fmt.Sprintf("ScoreMode(%d)", int(m))
	}
}

// Collector receives the matches of one search pass.
type Collector interface {
	ScoreMode() ScoreMode
	// SetNextReader is called before the matches of each leaf.
	SetNextReader(leaf index.LeafContext) error
	// Collect is called for each live match; doc is segment-local.
	Collect(doc int) error
	// Finish is called once after the last leaf.
	Finish() error
}

// Scorable exposes the score of the document being collected.
type Scorable interface {
	Score() float32
}

// ScorerAware is implemented by collectors that read scores. The searcher
// calls SetScorer after each SetNextReader.
type ScorerAware interface {
	SetScorer(s Scorable)
}

// CollectorExecutionContext carries what collectors need from the search.
type CollectorExecutionContext struct {
	Reader   *index.Reader
	Resolver index.MetadataResolver
	// MaxDocs caps result sizes; 0 means unbounded.
	MaxDocs int
	Logger  *slog.Logger
}

// NewCollectorExecutionContext returns a context resolving leaves through reader.
func NewCollectorExecutionContext(reader *index.Reader, maxDocs int) *CollectorExecutionContext {
	return &CollectorExecutionContext{Reader: reader, Resolver: reader, MaxDocs: maxDocs}
}

// CollectorFactory creates a fresh collector for one query.
type CollectorFactory func(ctx *CollectorExecutionContext) (Collector, error)

// leafBinding is the shared Unbound -> SegmentBound -> Done bookkeeping.
type leafBinding struct {
	bound bool
	done  bool
}

func (b *leafBinding) checkBind() error {
	if b.done {
		return fmt.Errorf("%w: SetNextReader after Finish", ErrCollectorState)
	}
	return nil
}

func (b *leafBinding) checkCollect() error {
	if b.done {
		return fmt.Errorf("%w: Collect after Finish", ErrCollectorState)
	}
	if !b.bound {
		return fmt.Errorf("%w: Collect before SetNextReader", ErrCollectorState)
	}
	return nil
}

func (b *leafBinding) finish() error {
	if b.done {
		return fmt.Errorf("%w: Finish called twice", ErrCollectorState)
	}
	b.done = true
	return nil
}
