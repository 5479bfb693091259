package directory

import (
	"context"
	"errors"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hsearch/internal/resource"
)

const (
	defaultBlockSize   = 64 << 10
	defaultCacheBlocks = 1024
	defaultPrefetch    = 8
)

type blockKey struct {
	name  string
	block int64
}

// CachingOption configures a Caching directory.
type CachingOption func(*cachingOptions)

type cachingOptions struct {
	blockSize  int64
	blocks     int
	prefetch   int
	controller *resource.Controller
}

// WithBlockSize sets the cache block size in bytes.
func WithBlockSize(n int64) CachingOption {
	return func(o *cachingOptions) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithCacheBlocks sets how many blocks the cache holds.
func WithCacheBlocks(n int) CachingOption {
	return func(o *cachingOptions) {
		if n > 0 {
			o.blocks = n
		}
	}
}

// WithPrefetchConcurrency bounds parallel reads against the inner directory.
func WithPrefetchConcurrency(n int) CachingOption {
	return func(o *cachingOptions) {
		if n > 0 {
			o.prefetch = n
		}
	}
}

// WithResourceController throttles reads against the inner directory.
func WithResourceController(c *resource.Controller) CachingOption {
	return func(o *cachingOptions) {
		o.controller = c
	}
}

// Caching keeps recently read blocks of an inner directory in memory.
// Files are immutable once written, so cached blocks only go stale when a
// name is rewritten or deleted through this directory.
type Caching struct {
	inner Directory
	cache *lru.Cache[blockKey, []byte]
	opts  cachingOptions
}

// NewCaching wraps inner with a block cache.
func NewCaching(inner Directory, optFns ...CachingOption) (*Caching, error) {
	opts := cachingOptions{
		blockSize: defaultBlockSize,
		blocks:    defaultCacheBlocks,
		prefetch:  defaultPrefetch,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c, err := lru.New[blockKey, []byte](opts.blocks)
	if err != nil {
		return nil, err
	}
	return &Caching{inner: inner, cache: c, opts: opts}, nil
}

// Open opens a cached view of the file.
func (d *Caching) Open(ctx context.Context, name string) (Input, error) {
	in, err := d.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingInput{dir: d, inner: in, name: name, ctx: ctx}, nil
}

// Put invalidates cached blocks of name and writes through.
func (d *Caching) Put(ctx context.Context, name string, data []byte) error {
	d.invalidate(name)
	return d.inner.Put(ctx, name, data)
}

// Delete invalidates cached blocks of name and deletes through.
func (d *Caching) Delete(ctx context.Context, name string) error {
	d.invalidate(name)
	return d.inner.Delete(ctx, name)
}

// List delegates to the inner directory.
func (d *Caching) List(ctx context.Context, prefix string) ([]string, error) {
	return d.inner.List(ctx, prefix)
}

// Close purges the cache and closes the inner directory.
func (d *Caching) Close() error {
	d.cache.Purge()
	return d.inner.Close()
}

// Prefetch loads the named files into the cache in parallel.
func (d *Caching) Prefetch(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.prefetch)

	for _, name := range names {
		g.Go(func() error {
			in, err := d.inner.Open(ctx, name)
			if err != nil {
				return err
			}
			defer in.Close()

			last := (in.Size() - 1) / d.opts.blockSize
			return d.fill(ctx, name, in, 0, last)
		})
	}
	return g.Wait()
}

func (d *Caching) invalidate(name string) {
	for _, k := range d.cache.Keys() {
		if k.name == name {
			d.cache.Remove(k)
		}
	}
}

// fill reads the missing blocks of [first, last] in contiguous runs.
func (d *Caching) fill(ctx context.Context, name string, in Input, first, last int64) error {
	type run struct{ start, count int64 }
	var runs []run

	for blk := first; blk <= last; blk++ {
		if d.cache.Contains(blockKey{name: name, block: blk}) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == blk {
			runs[n-1].count++
		} else {
			runs = append(runs, run{start: blk, count: 1})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.prefetch)

	size := in.Size()
	for _, r := range runs {
		g.Go(func() error {
			start := r.start * d.opts.blockSize
			if start >= size {
				return nil
			}
			length := min(r.count*d.opts.blockSize, size-start)

			if err := d.opts.controller.AcquireIO(ctx, int(length)); err != nil {
				return err
			}

			buf := make([]byte, length)
			n, err := in.ReadAt(buf, start)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			for i := int64(0); i < r.count; i++ {
				lo := i * d.opts.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+d.opts.blockSize, int64(len(buf)))
				// Copy so the cache does not pin the whole run.
				d.cache.Add(blockKey{name: name, block: r.start + i}, append([]byte(nil), buf[lo:hi]...))
			}
			return nil
		})
	}
	return g.Wait()
}

type cachingInput struct {
	dir   *Caching
	inner Input
	name  string
	ctx   context.Context
}

func (in *cachingInput) Size() int64 { return in.inner.Size() }

func (in *cachingInput) Close() error { return in.inner.Close() }

func (in *cachingInput) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size := in.Size()
	if off < 0 {
		return 0, errors.New("directory: negative offset")
	}
	if off >= size {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), size)
	bs := in.dir.opts.blockSize
	first, last := off/bs, (end-1)/bs

	if err := in.dir.fill(in.ctx, in.name, in.inner, first, last); err != nil {
		return 0, err
	}

	total := 0
	for blk := first; blk <= last; blk++ {
		data, ok := in.dir.cache.Get(blockKey{name: in.name, block: blk})
		if !ok {
			// Evicted between fill and read.
			var err error
			if data, err = in.readBlock(blk); err != nil {
				return total, err
			}
		}
		blkStart := blk * bs
		lo := max(blkStart, off)
		hi := min(blkStart+int64(len(data)), end)
		if hi <= lo {
			break
		}
		total += copy(p[lo-off:hi-off], data[lo-blkStart:hi-blkStart])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

func (in *cachingInput) readBlock(blk int64) ([]byte, error) {
	bs := in.dir.opts.blockSize
	start := blk * bs
	buf := make([]byte, min(bs, in.Size()-start))
	n, err := in.inner.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
