package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a file does not exist.
//
// Implementations must return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrClosed is returned by operations on a closed directory.
var ErrClosed = errors.New("directory: closed")

// Directory stores the files of one index.
type Directory interface {
	// Open opens a file for reading.
	Open(ctx context.Context, name string) (Input, error)
	// Put writes a whole file. Readers never observe a partial file.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Close releases the directory.
	Close() error
}

// Input is a read-only handle to a file.
type Input interface {
	io.ReaderAt
	io.Closer
	// Size returns the file length in bytes.
	Size() int64
}

// Mappable is implemented by inputs that expose their whole content without
// copying. The slice is valid until the Input is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll returns a private copy of the named file.
func ReadAll(ctx context.Context, dir Directory, name string) ([]byte, error) {
	in, err := dir.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	if m, ok := in.(Mappable); ok {
		b, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	}

	buf := make([]byte, in.Size())
	n, err := in.ReadAt(buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == in.Size()) {
		return nil, fmt.Errorf("directory: read %s: %w", name, err)
	}
	return buf[:n], nil
}

// bytesInput serves an Input from a byte slice it owns.
type bytesInput struct {
	data []byte
}

// NewBytesInput returns an Input over data. The slice must not be modified.
func NewBytesInput(data []byte) Input {
	return &bytesInput{data: data}
}

func (b *bytesInput) ReadAt(p []byte, off int64) (int, error) {
	return readAt(b.data, p, off)
}

func (b *bytesInput) Close() error { return nil }

func (b *bytesInput) Size() int64 { return int64(len(b.data)) }

func (b *bytesInput) Bytes() ([]byte, error) { return b.data, nil }

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("directory: negative offset %d", off)
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func hasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}
