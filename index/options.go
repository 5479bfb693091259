package index

import (
	"log/slog"

	"github.com/hupe1980/hsearch/internal/resource"
)

const (
	defaultMaxBufferedDocs = 10_000
	defaultMaxSegments     = 16
	defaultMergeFactor     = 4
)

type options struct {
	compression     Compression
	maxBufferedDocs int
	maxSegments     int
	mergeFactor     int
	commitPointer   CommitPointer
	controller      *resource.Controller
	logger          *slog.Logger
}

// Option configures an IndexWriter.
type Option func(*options)

// WithCompression sets the stored-fields compression of new segments.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMaxBufferedDocs flushes the buffer into a segment once it holds n
// documents. If n <= 0, the buffer is only flushed explicitly.
func WithMaxBufferedDocs(n int) Option {
	return func(o *options) {
		o.maxBufferedDocs = n
	}
}

// WithMaxSegments merges segments after a flush when more than n exist.
// If n <= 0, segments are only merged by Merge.
func WithMaxSegments(n int) Option {
	return func(o *options) {
		o.maxSegments = n
	}
}

// WithMergeFactor sets how many of the smallest segments one merge combines.
func WithMergeFactor(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.mergeFactor = n
		}
	}
}

// WithCommitPointer replaces the file-based commit pointer.
func WithCommitPointer(p CommitPointer) Option {
	return func(o *options) {
		o.commitPointer = p
	}
}

// WithResourceController throttles segment loading and bounds concurrent merges.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression:     CompressionFast,
		maxBufferedDocs: defaultMaxBufferedDocs,
		maxSegments:     defaultMaxSegments,
		mergeFactor:     defaultMergeFactor,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
