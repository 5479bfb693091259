package hsearch

import (
	"log/slog"

	"github.com/hupe1980/hsearch/index"
	"github.com/hupe1980/hsearch/internal/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	compression      index.Compression
	maxBufferedDocs  int
	mergeFactor      int
	resourceLimits   *resource.Config
	searchWorkers    int
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &hsearch.BasicMetricsCollector{}
//	b, _ := hsearch.Open(ctx, hsearch.WithMetricsCollector(metrics))
//	// ... use b ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithCompression sets the stored-field compression of new segments.
func WithCompression(c index.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMaxBufferedDocs flushes the in-memory segment of an index once it holds
// n documents. 0 keeps the index writer default.
func WithMaxBufferedDocs(n int) Option {
	return func(o *options) {
		o.maxBufferedDocs = n
	}
}

// WithMergeFactor sets how many segments an index accumulates before a
// commit merges them. 0 keeps the index writer default.
func WithMergeFactor(n int) Option {
	return func(o *options) {
		o.mergeFactor = n
	}
}

// ResourceLimits bounds the work shared by all indexes of a backend. Zero
// fields are unlimited.
type ResourceLimits struct {
	MemoryLimitBytes     int64
	MaxBackgroundWorkers int64
	IOLimitBytesPerSec   int64
}

// WithResourceLimits bounds the memory, I/O and background work shared by
// all indexes of the backend.
func WithResourceLimits(limits ResourceLimits) Option {
	return func(o *options) {
		o.resourceLimits = &resource.Config{
			MemoryLimitBytes:     limits.MemoryLimitBytes,
			MaxBackgroundWorkers: limits.MaxBackgroundWorkers,
			IOLimitBytesPerSec:   limits.IOLimitBytesPerSec,
		}
	}
}

// WithSearchWorkers runs reference-only searches over n pooled goroutines,
// one leaf per task. n <= 1 searches sequentially.
func WithSearchWorkers(n int) Option {
	return func(o *options) {
		o.searchWorkers = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      index.CompressionFast,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type indexOptions struct {
	commitPointer index.CommitPointer
}

// IndexOption configures CreateIndex.
type IndexOption func(*indexOptions)

// WithCommitPointer stores the name of the current manifest of the index in
// p instead of the index directory. Use it for object stores without
// conditional writes.
func WithCommitPointer(p index.CommitPointer) IndexOption {
	return func(o *indexOptions) {
		o.commitPointer = p
	}
}

func applyIndexOptions(optFns []IndexOption) indexOptions {
	var o indexOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
