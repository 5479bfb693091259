package hsearch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/types"
)

// Index is one named index of a Backend. Writes become visible to new
// scopes after Refresh and durable after Commit.
type Index struct {
	name    string
	model   *types.IndexModel
	writer  *index.IndexWriter
	reader  atomic.Pointer[index.Reader]
	logger  *Logger
	metrics MetricsCollector
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Model returns the field model of the index.
func (i *Index) Model() *types.IndexModel { return i.model }

// Add indexes a new document. fields maps field paths to caller values.
func (i *Index) Add(ctx context.Context, id string, fields map[string]any) error {
	start := time.Now()
	err := i.write(id, fields, i.writer.Add)
	i.metrics.RecordAdd(i.name, time.Since(start), err)
	i.logger.LogIndex(ctx, "add", i.name, id, err)
	return err
}

// Update replaces the document with the given identifier, adding it if
// absent.
func (i *Index) Update(ctx context.Context, id string, fields map[string]any) error {
	start := time.Now()
	err := i.write(id, fields, i.writer.Update)
	i.metrics.RecordUpdate(i.name, time.Since(start), err)
	i.logger.LogIndex(ctx, "update", i.name, id, err)
	return err
}

func (i *Index) write(id string, fields map[string]any, apply func(document.Document) error) error {
	doc, err := i.model.BuildDocument(id, fields)
	if err != nil {
		return &IndexError{Index: i.name, ID: id, cause: translateError(err)}
	}
	if err := apply(doc); err != nil {
		return &IndexError{Index: i.name, ID: id, cause: translateError(err)}
	}
	return nil
}

// Delete removes the document with the given identifier and reports whether
// one existed.
func (i *Index) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	n, err := i.writer.DeleteByID(id)
	err = translateError(err)
	i.metrics.RecordDelete(i.name, time.Since(start), err)
	i.logger.LogIndex(ctx, "delete", i.name, id, err)
	return n > 0, err
}

// Commit durably records all changes to the index directory.
func (i *Index) Commit(ctx context.Context) error {
	start := time.Now()
	err := i.writer.Commit(ctx)
	i.metrics.RecordCommit(i.name, time.Since(start), err)
	i.logger.LogCommit(ctx, i.name, i.writer.Stats().Generation, err)
	return translateError(err)
}

// Refresh makes all changes so far visible to scopes created afterwards.
func (i *Index) Refresh() error {
	r, err := i.writer.Reader()
	if err != nil {
		return translateError(err)
	}
	i.reader.Store(r)
	return nil
}

// Merge merges the segments of the index down to at most maxSegments.
func (i *Index) Merge(ctx context.Context, maxSegments int) error {
	return translateError(i.writer.Merge(ctx, maxSegments))
}

// Stats returns a snapshot of the index writer statistics.
func (i *Index) Stats() index.Stats { return i.writer.Stats() }

func (i *Index) snapshot() *index.Reader { return i.reader.Load() }

func (i *Index) close() error { return i.writer.Close() }
