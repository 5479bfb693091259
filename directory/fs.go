package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/hsearch/internal/mmap"
)

const tempSuffix = ".tmp"

// FS is a Directory on the local file system.
type FS struct {
	root     string
	strategy FileSystemAccessStrategyName
	closed   atomic.Bool
}

// NewFS opens (creating if needed) a directory rooted at root.
// Auto is resolved to a concrete strategy here.
func NewFS(root string, strategy FileSystemAccessStrategyName) (*FS, error) {
	if strategy == Auto {
		if mmap.Supported && strconv.IntSize == 64 {
			strategy = Mmap
		} else {
			strategy = Nio
		}
	}
	if _, err := strategy.MarshalText(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("directory: create %s: %w", root, err)
	}
	return &FS{root: root, strategy: strategy}, nil
}

// Root returns the file system path of the directory.
func (d *FS) Root() string { return d.root }

// Strategy returns the resolved access strategy.
func (d *FS) Strategy() FileSystemAccessStrategyName { return d.strategy }

// Open opens a file using the configured access strategy.
func (d *FS) Open(_ context.Context, name string) (Input, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}

	switch d.strategy {
	case Simple:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &bytesInput{data: data}, nil
	case Mmap:
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		// Segment sections are read by offset, not front to back.
		_ = m.Advise(mmap.AccessRandom)
		return &mmapInput{m: m}, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		return &fileInput{f: f, size: fi.Size()}, nil
	}
}

// Put writes data to a temporary file, syncs it and renames it into place.
func (d *FS) Put(_ context.Context, name string, data []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	path, err := d.path(name)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(d.root, filepath.Base(name)+".*"+tempSuffix)
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes a file.
func (d *FS) Delete(_ context.Context, name string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	path, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the sorted names starting with prefix. Temporary files of
// in-flight writes are skipped.
func (d *FS) List(_ context.Context, prefix string) ([]string, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tempSuffix) {
			continue
		}
		if hasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close marks the directory closed. Open inputs stay valid.
func (d *FS) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *FS) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("directory: invalid file name %q", name)
	}
	return filepath.Join(d.root, name), nil
}

type fileInput struct {
	f    *os.File
	size int64
}

func (in *fileInput) ReadAt(p []byte, off int64) (int, error) { return in.f.ReadAt(p, off) }

func (in *fileInput) Close() error { return in.f.Close() }

func (in *fileInput) Size() int64 { return in.size }

type mmapInput struct {
	m *mmap.Mapping
}

func (in *mmapInput) ReadAt(p []byte, off int64) (int, error) { return in.m.ReadAt(p, off) }

func (in *mmapInput) Close() error { return in.m.Close() }

func (in *mmapInput) Size() int64 { return in.m.Size() }

func (in *mmapInput) Bytes() ([]byte, error) {
	b := in.m.Bytes()
	if b == nil && in.m.Size() > 0 {
		return nil, mmap.ErrClosed
	}
	return b, nil
}
