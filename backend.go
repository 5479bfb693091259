package hsearch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/internal/resource"
	"github.com/hupe1980/hsearch/types"
)

// Backend manages a set of named indexes and the scopes searching them.
// It is safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	opts    options
	limits  *resource.Controller
	pool    *ants.Pool
	indexes map[string]*Index
	aliases map[string]string
	closed  bool
}

// Open creates a backend with no indexes.
func Open(ctx context.Context, optFns ...Option) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := applyOptions(optFns)
	b := &Backend{
		opts:    opts,
		indexes: make(map[string]*Index),
		aliases: make(map[string]string),
	}
	if opts.resourceLimits != nil {
		b.limits = resource.NewController(*opts.resourceLimits)
	}
	if opts.searchWorkers > 1 {
		pool, err := ants.NewPool(opts.searchWorkers)
		if err != nil {
			return nil, fmt.Errorf("hsearch: create search pool: %w", err)
		}
		b.pool = pool
	}
	return b, nil
}

// CreateIndex opens the index described by model in dir, loading its last
// commit if any, and makes it searchable under the model name.
func (b *Backend) CreateIndex(ctx context.Context, model *types.IndexModel, dir directory.Directory, optFns ...IndexOption) (*Index, error) {
	if model == nil || dir == nil {
		return nil, fmt.Errorf("%w: model and directory are required", ErrPreconditionViolation)
	}
	name := model.Name()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, ok := b.indexes[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexExists, name)
	}
	if _, ok := b.aliases[name]; ok {
		return nil, fmt.Errorf("%w: %s is an alias", ErrIndexExists, name)
	}

	iopts := applyIndexOptions(optFns)
	writerOpts := []index.Option{
		index.WithCompression(b.opts.compression),
		index.WithLogger(b.opts.logger.Logger),
	}
	if b.opts.maxBufferedDocs > 0 {
		writerOpts = append(writerOpts, index.WithMaxBufferedDocs(b.opts.maxBufferedDocs))
	}
	if b.opts.mergeFactor > 0 {
		writerOpts = append(writerOpts, index.WithMergeFactor(b.opts.mergeFactor))
	}
	if b.limits != nil {
		writerOpts = append(writerOpts, index.WithResourceController(b.limits))
	}
	if iopts.commitPointer != nil {
		writerOpts = append(writerOpts, index.WithCommitPointer(iopts.commitPointer))
	}

	idx := &Index{
		name:    name,
		model:   model,
		writer:  index.NewIndexWriter(name, dir, writerOpts...),
		logger:  b.opts.logger.WithIndex(name),
		metrics: b.opts.metricsCollector,
	}
	err := idx.writer.Open(ctx)
	if err == nil {
		err = idx.Refresh()
	}
	stats := idx.writer.Stats()
	b.opts.logger.LogOpen(ctx, name, stats.Segments, stats.NumDocs, err)
	if err != nil {
		_ = idx.writer.Close()
		return nil, translateError(err)
	}

	b.indexes[name] = idx
	return idx, nil
}

// Index returns the index registered under name or alias.
func (b *Backend) Index(name string) (*Index, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}
	return b.lookupLocked(name)
}

func (b *Backend) lookupLocked(name string) (*Index, error) {
	if target, ok := b.aliases[name]; ok {
		name = target
	}
	idx, ok := b.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: index %s", ErrNotFound, name)
	}
	return idx, nil
}

// Alias makes the index name reachable as alias. Searches through an alias
// report the concrete index name in their references.
func (b *Backend) Alias(alias, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrPreconditionViolation)
	}
	if _, ok := b.indexes[alias]; ok {
		return fmt.Errorf("%w: %s is an index", ErrIndexExists, alias)
	}
	if _, ok := b.indexes[name]; !ok {
		return fmt.Errorf("%w: index %s", ErrNotFound, name)
	}
	b.aliases[alias] = name
	return nil
}

// Indexes returns the registered index names, sorted.
func (b *Backend) Indexes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return sortedIndexNames(b.indexes)
}

// Scope returns a point-in-time view over the named indexes or aliases, as
// of their last refresh. Duplicates are ignored.
func (b *Backend) Scope(names ...string) (*Scope, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: scope needs at least one index", ErrPreconditionViolation)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	seen := make(map[string]struct{}, len(names))
	var members []*Index
	for _, name := range names {
		idx, err := b.lookupLocked(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[idx.name]; dup {
			continue
		}
		seen[idx.name] = struct{}{}
		members = append(members, idx)
	}
	return newScope(b, members), nil
}

// Close closes every index and releases the search pool. Uncommitted
// changes are discarded.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for _, name := range sortedIndexNames(b.indexes) {
		if err := b.indexes[name].close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.pool != nil {
		b.pool.Release()
	}
	return translateError(firstErr)
}

func sortedIndexNames(m map[string]*Index) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
