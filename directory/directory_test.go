package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/internal/resource"
)

func TestParseFileSystemAccessStrategyName(t *testing.T) {
	tests := []struct {
		in   string
		want FileSystemAccessStrategyName
	}{
		{"auto", Auto},
		{"simple", Simple},
		{"nio", Nio},
		{"mmap", Mmap},
		{"  MMAP ", Mmap},
		{"Nio", Nio},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFileSystemAccessStrategyName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFileSystemAccessStrategyName("ramdisk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto, simple, nio, mmap")
}

func TestFileSystemAccessStrategyName_RoundTrip(t *testing.T) {
	for _, s := range []FileSystemAccessStrategyName{Auto, Simple, Nio, Mmap} {
		parsed, err := ParseFileSystemAccessStrategyName(s.ExternalRepresentation())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)

		text, err := s.MarshalText()
		require.NoError(t, err)

		var back FileSystemAccessStrategyName
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	_, err := FileSystemAccessStrategyName(42).MarshalText()
	assert.Error(t, err)
}

// exerciseDirectory runs the shared Directory contract.
func exerciseDirectory(t *testing.T, dir Directory) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, dir.Put(ctx, "seg_1.hss", []byte("hello segment")))
	require.NoError(t, dir.Put(ctx, "seg_2.hss", []byte("second")))
	require.NoError(t, dir.Put(ctx, "segments_1", []byte("{}")))

	in, err := dir.Open(ctx, "seg_1.hss")
	require.NoError(t, err)
	assert.Equal(t, int64(13), in.Size())

	buf := make([]byte, 7)
	n, err := in.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "segment", string(buf))
	require.NoError(t, in.Close())

	data, err := ReadAll(ctx, dir, "seg_2.hss")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	names, err := dir.List(ctx, "seg_")
	require.NoError(t, err)
	assert.Equal(t, []string{"seg_1.hss", "seg_2.hss"}, names)

	require.NoError(t, dir.Put(ctx, "seg_2.hss", []byte("rewritten")))
	data, err = ReadAll(ctx, dir, "seg_2.hss")
	require.NoError(t, err)
	assert.Equal(t, []byte("rewritten"), data)

	require.NoError(t, dir.Delete(ctx, "seg_1.hss"))
	require.NoError(t, dir.Delete(ctx, "seg_1.hss"))

	_, err = dir.Open(ctx, "seg_1.hss")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, dir.Close())
}

func TestMemory(t *testing.T) {
	exerciseDirectory(t, NewMemory())

	m := NewMemory()
	require.NoError(t, m.Close())
	_, err := m.Open(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFS_Strategies(t *testing.T) {
	for _, s := range []FileSystemAccessStrategyName{Auto, Simple, Nio, Mmap} {
		t.Run(s.String(), func(t *testing.T) {
			dir, err := NewFS(t.TempDir(), s)
			require.NoError(t, err)
			assert.NotEqual(t, Auto, dir.Strategy())
			exerciseDirectory(t, dir)
		})
	}
}

func TestFS_RejectsPathsOutsideRoot(t *testing.T) {
	dir, err := NewFS(t.TempDir(), Nio)
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../escape", filepath.Join("a", "b")} {
		assert.Error(t, dir.Put(context.Background(), name, nil), name)
	}
}

func TestFS_ListSkipsTemporaryFiles(t *testing.T) {
	root := t.TempDir()
	dir, err := NewFS(root, Nio)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "seg_1.hss.123.tmp"), []byte("x"), 0o600))
	require.NoError(t, dir.Put(context.Background(), "seg_1.hss", []byte("x")))

	names, err := dir.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"seg_1.hss"}, names)
}

func TestCaching(t *testing.T) {
	inner := NewMemory()
	dir, err := NewCaching(inner,
		WithBlockSize(4),
		WithCacheBlocks(64),
		WithResourceController(resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})),
	)
	require.NoError(t, err)
	exerciseDirectory(t, dir)
}

func TestCaching_ReadsAcrossBlocksAndInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	dir, err := NewCaching(inner, WithBlockSize(3), WithCacheBlocks(2))
	require.NoError(t, err)

	require.NoError(t, dir.Put(ctx, "f", []byte("0123456789")))
	require.NoError(t, dir.Prefetch(ctx, "f"))

	in, err := dir.Open(ctx, "f")
	require.NoError(t, err)
	defer in.Close()

	for off := 0; off < 10; off++ {
		for l := 1; off+l <= 10; l++ {
			buf := make([]byte, l)
			n, err := in.ReadAt(buf, int64(off))
			require.NoError(t, err, fmt.Sprintf("off=%d len=%d", off, l))
			assert.Equal(t, "0123456789"[off:off+l], string(buf[:n]))
		}
	}

	require.NoError(t, dir.Put(ctx, "f", []byte("abcdefghij")))
	data, err := ReadAll(ctx, dir, "f")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", string(data))
}
