package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/document"
)

type writerSegment struct {
	seg       *Segment
	deleted   *roaring.Bitmap
	delGen    int64
	delDirty  bool
	persisted bool
}

// Stats summarizes the state of an IndexWriter.
type Stats struct {
	Segments   int
	MaxDoc     int
	NumDocs    int
	Buffered   int
	Generation int64
}

// IndexWriter owns the segments of one index. It buffers added documents,
// applies deletions, flushes and merges segments and commits them to a
// directory. It is safe for concurrent use.
type IndexWriter struct {
	mu          sync.Mutex
	name        string
	dir         directory.Directory
	opts        options
	pointer     CommitPointer
	buffer      *SegmentWriter
	segments    []*writerSegment
	generation  int64
	current     string
	nextSegment int64
	closed      bool
}

// NewIndexWriter creates a writer for the index name stored in dir.
// Call Open to load an existing commit.
func NewIndexWriter(name string, dir directory.Directory, optFns ...Option) *IndexWriter {
	opts := applyOptions(optFns)
	pointer := opts.commitPointer
	if pointer == nil {
		pointer = NewDirectoryCommitPointer(dir)
	}
	return &IndexWriter{
		name:    name,
		dir:     dir,
		opts:    opts,
		pointer: pointer,
		buffer:  NewSegmentWriter(),
	}
}

// Name returns the index name.
func (w *IndexWriter) Name() string { return w.name }

// Open loads the latest commit, replacing any uncommitted state.
func (w *IndexWriter) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	current, err := w.pointer.Load(ctx)
	if err != nil {
		return fmt.Errorf("index %s: load commit pointer: %w", w.name, err)
	}

	w.buffer = NewSegmentWriter()
	w.segments = nil
	w.generation, w.nextSegment, w.current = 0, 0, current
	if current == "" {
		w.opts.logger.Debug("opened empty index", "index", w.name)
		return nil
	}

	m, err := loadManifest(ctx, w.dir, current)
	if err != nil {
		return err
	}
	for _, info := range m.Segments {
		ws, err := w.loadSegment(ctx, info)
		if err != nil {
			w.segments = nil
			return err
		}
		w.segments = append(w.segments, ws)
	}
	w.generation = m.Generation
	w.nextSegment = m.NextSegment

	w.opts.logger.Debug("opened index", "index", w.name, "generation", m.Generation, "segments", len(m.Segments))
	return nil
}

func (w *IndexWriter) loadSegment(ctx context.Context, info SegmentInfo) (*writerSegment, error) {
	data, err := w.readFile(ctx, info.FileName())
	if err != nil {
		return nil, err
	}
	seg, err := ReadSegment(info.Name, data)
	if err != nil {
		return nil, err
	}
	if seg.MaxDoc() != info.MaxDoc {
		return nil, &CorruptSegmentError{Name: info.Name,
			Reason: fmt.Sprintf("manifest says %d documents, segment has %d", info.MaxDoc, seg.MaxDoc())}
	}

	ws := &writerSegment{seg: seg, deleted: roaring.New(), delGen: info.DelGen, persisted: true}
	if name := info.LiveDocsFileName(); name != "" {
		data, err := w.readFile(ctx, name)
		if err != nil {
			return nil, err
		}
		if ws.deleted, err = decodeLiveDocs(name, data); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func (w *IndexWriter) readFile(ctx context.Context, name string) ([]byte, error) {
	data, err := directory.ReadAll(ctx, w.dir, name)
	if err != nil {
		return nil, fmt.Errorf("index %s: read %s: %w", w.name, name, err)
	}
	if err := w.opts.controller.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Add buffers a new document.
func (w *IndexWriter) Add(doc document.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.buffer.Add(doc); err != nil {
		return err
	}
	return w.maybeFlushLocked()
}

// Update replaces every document with the same id by doc.
func (w *IndexWriter) Update(doc document.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if doc.ID == "" {
		return document.ErrMissingID
	}
	w.deleteLocked(doc.ID)
	if err := w.buffer.Add(doc); err != nil {
		return err
	}
	return w.maybeFlushLocked()
}

// DeleteByID deletes every document with id and returns how many were live.
func (w *IndexWriter) DeleteByID(id string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	return w.deleteLocked(id), nil
}

func (w *IndexWriter) deleteLocked(id string) int {
	n := 0
	if w.buffer.Delete(id) {
		n++
	}
	for _, ws := range w.segments {
		postings := ws.seg.Postings(document.IDFieldName, id)
		if postings == nil {
			continue
		}
		it := postings.Iterator()
		for it.HasNext() {
			if ws.deleted.CheckedAdd(it.Next()) {
				ws.delDirty = true
				n++
			}
		}
	}
	return n
}

func (w *IndexWriter) maybeFlushLocked() error {
	if w.opts.maxBufferedDocs > 0 && w.buffer.NumDocs() >= w.opts.maxBufferedDocs {
		return w.flushLocked()
	}
	return nil
}

// Flush turns buffered documents into a segment without committing.
func (w *IndexWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.flushLocked()
}

func (w *IndexWriter) flushLocked() error {
	w.dropFullyDeletedLocked()

	buffered := w.buffer.NumDocs()
	seg, err := w.buffer.Flush(w.newSegmentName(), w.opts.compression)
	if err != nil {
		return fmt.Errorf("index %s: flush: %w", w.name, err)
	}
	if seg == nil {
		return nil
	}
	w.segments = append(w.segments, &writerSegment{seg: seg, deleted: roaring.New()})
	w.opts.logger.Debug("flushed segment", "index", w.name, "segment", seg.Name(), "docs", buffered)

	if w.opts.maxSegments > 0 && len(w.segments) > w.opts.maxSegments {
		return w.mergeLocked(w.opts.maxSegments)
	}
	return nil
}

func (w *IndexWriter) dropFullyDeletedLocked() {
	kept := w.segments[:0]
	for i, ws := range w.segments {
		if w.live(i) > 0 {
			kept = append(kept, ws)
		}
	}
	clear(w.segments[len(kept):])
	w.segments = kept
}

func (w *IndexWriter) newSegmentName() string {
	n := w.nextSegment
	w.nextSegment++
	// The nonce keeps names unique when writers share an object store prefix.
	return "_" + strconv.FormatInt(n, 36) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Merge flushes and then merges segments until at most maxSegments remain.
func (w *IndexWriter) Merge(ctx context.Context, maxSegments int) error {
	if maxSegments < 1 {
		maxSegments = 1
	}
	if err := w.opts.controller.AcquireBackground(ctx); err != nil {
		return err
	}
	defer w.opts.controller.ReleaseBackground()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	return w.mergeLocked(maxSegments)
}

// mergeLocked repeatedly merges the smallest segments. Merged segments keep
// the relative order of their inputs so global document order is stable.
func (w *IndexWriter) mergeLocked(maxSegments int) error {
	for len(w.segments) > maxSegments {
		n := min(w.opts.mergeFactor, len(w.segments)-maxSegments+1)

		order := make([]int, len(w.segments))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return w.live(order[a]) < w.live(order[b])
		})
		picked := order[:n]
		sort.Ints(picked)

		inputs := make([]*SegmentReader, n)
		for i, idx := range picked {
			ws := w.segments[idx]
			inputs[i] = NewSegmentReader(ws.seg, ws.deleted.Clone())
		}

		merged, err := mergeSegments(w.newSegmentName(), inputs, w.opts.compression)
		if err != nil {
			return fmt.Errorf("index %s: merge: %w", w.name, err)
		}

		out := make([]*writerSegment, 0, len(w.segments)-n+1)
		j := 0
		for i, ws := range w.segments {
			if j < n && picked[j] == i {
				if j == 0 {
					out = append(out, &writerSegment{seg: merged, deleted: roaring.New()})
				}
				j++
				continue
			}
			out = append(out, ws)
		}
		w.segments = out

		w.opts.logger.Debug("merged segments", "index", w.name, "inputs", n,
			"segment", merged.Name(), "docs", merged.MaxDoc())
	}
	return nil
}

func (w *IndexWriter) live(i int) int {
	ws := w.segments[i]
	return ws.seg.MaxDoc() - int(ws.deleted.GetCardinality())
}

// Reader flushes buffered documents and returns a point-in-time reader.
// Later changes are not visible to it.
func (w *IndexWriter) Reader() (*Reader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if err := w.flushLocked(); err != nil {
		return nil, err
	}
	segs := make([]*SegmentReader, len(w.segments))
	for i, ws := range w.segments {
		segs[i] = NewSegmentReader(ws.seg, ws.deleted.Clone())
	}
	return NewReader(w.name, segs...), nil
}

// Commit flushes and durably records the current segments and deletions.
func (w *IndexWriter) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.flushLocked(); err != nil {
		return err
	}

	// Fail before writing anything if another writer committed meanwhile.
	cur, err := w.pointer.Load(ctx)
	if err != nil {
		return fmt.Errorf("index %s: load commit pointer: %w", w.name, err)
	}
	if cur != w.current {
		return fmt.Errorf("index %s: %w: expected %q, found %q", w.name, ErrConcurrentCommit, w.current, cur)
	}

	gen := w.generation + 1
	m := &Manifest{Generation: gen, Index: w.name, NextSegment: w.nextSegment}
	delGens := make([]int64, len(w.segments))

	for i, ws := range w.segments {
		if !ws.persisted {
			data, err := ws.seg.MarshalBinary()
			if err != nil {
				return err
			}
			if err := w.dir.Put(ctx, ws.seg.Name()+SegmentExtension, data); err != nil {
				return fmt.Errorf("index %s: write segment %s: %w", w.name, ws.seg.Name(), err)
			}
		}

		delGens[i] = ws.delGen
		if ws.delDirty {
			data, err := encodeLiveDocs(ws.deleted)
			if err != nil {
				return err
			}
			name := liveDocsFileName(ws.seg.Name(), gen)
			if err := w.dir.Put(ctx, name, data); err != nil {
				return fmt.Errorf("index %s: write live docs %s: %w", w.name, name, err)
			}
			delGens[i] = gen
		}

		info := SegmentInfo{
			Name:        ws.seg.Name(),
			MaxDoc:      ws.seg.MaxDoc(),
			Compression: ws.seg.Compression(),
			DelCount:    int(ws.deleted.GetCardinality()),
		}
		if info.DelCount > 0 {
			info.DelGen = delGens[i]
		}
		m.Segments = append(m.Segments, info)
	}

	name, err := saveManifest(ctx, w.dir, m)
	if err != nil {
		return fmt.Errorf("index %s: write manifest: %w", w.name, err)
	}
	if err := w.pointer.Swap(ctx, w.current, name); err != nil {
		return fmt.Errorf("index %s: advance commit pointer: %w", w.name, err)
	}

	for i, ws := range w.segments {
		ws.persisted = true
		ws.delDirty = false
		ws.delGen = delGens[i]
	}
	w.generation = gen
	w.current = name

	w.opts.logger.Debug("committed index", "index", w.name, "generation", gen, "segments", len(m.Segments))
	w.deleteUnreferenced(ctx, m)
	return nil
}

// deleteUnreferenced removes files no longer reachable from m. Failures are
// logged; the next commit retries.
func (w *IndexWriter) deleteUnreferenced(ctx context.Context, m *Manifest) {
	keep := map[string]struct{}{
		ManifestFileName(m.Generation): {},
		CurrentFileName:                {},
	}
	for _, s := range m.Segments {
		keep[s.FileName()] = struct{}{}
		if name := s.LiveDocsFileName(); name != "" {
			keep[name] = struct{}{}
		}
	}

	names, err := w.dir.List(ctx, "")
	if err != nil {
		w.opts.logger.Warn("listing index files failed", "index", w.name, "error", err)
		return
	}
	for _, name := range names {
		if _, ok := keep[name]; ok {
			continue
		}
		if _, isManifest := ParseManifestGeneration(name); !isManifest && !strings.HasPrefix(name, "_") {
			continue
		}
		if err := w.dir.Delete(ctx, name); err != nil && !errors.Is(err, directory.ErrNotFound) {
			w.opts.logger.Warn("deleting obsolete file failed", "index", w.name, "file", name, "error", err)
		}
	}
}

// Stats returns a snapshot of writer statistics.
func (w *IndexWriter) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Stats{Segments: len(w.segments), Buffered: w.buffer.NumDocs(), Generation: w.generation}
	for i, ws := range w.segments {
		s.MaxDoc += ws.seg.MaxDoc()
		s.NumDocs += w.live(i)
	}
	return s
}

// Close releases the writer. Uncommitted changes are discarded.
func (w *IndexWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if n := w.buffer.NumDocs(); n > 0 {
		w.opts.logger.Warn("closing writer with buffered documents", "index", w.name, "docs", n)
	}
	w.closed = true
	w.segments = nil
	w.buffer = NewSegmentWriter()
	return nil
}
