package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
)

func openMemory(t *testing.T) *Directory {
	t.Helper()
	d, err := Open("", WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDirectory_Files(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)

	require.NoError(t, d.Put(ctx, "_1.seg", []byte("one")))
	require.NoError(t, d.Put(ctx, "_0.seg", []byte("zero")))
	require.NoError(t, d.Put(ctx, "segments_1", []byte("m")))

	got, err := directory.ReadAll(ctx, d, "_0.seg")
	require.NoError(t, err)
	assert.Equal(t, []byte("zero"), got)

	names, err := d.List(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{"_0.seg", "_1.seg"}, names)

	require.NoError(t, d.Delete(ctx, "_0.seg"))
	require.NoError(t, d.Delete(ctx, "_0.seg"))
	_, err = d.Open(ctx, "_0.seg")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	require.NoError(t, d.Close())
	_, err = d.List(ctx, "")
	assert.ErrorIs(t, err, directory.ErrClosed)
	require.NoError(t, d.Close())
}

func TestDirectory_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	d, err := Open(path)
	require.NoError(t, err)
	w := index.NewIndexWriter("papers", d, index.WithCommitPointer(d.CommitPointer()))
	require.NoError(t, w.Open(ctx))
	for _, id := range []string{"1", "2"} {
		doc, err := document.NewBuilder(id).Build()
		require.NoError(t, err)
		require.NoError(t, w.Add(doc))
	}
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()

	reopened := index.NewIndexWriter("papers", d, index.WithCommitPointer(d.CommitPointer()))
	require.NoError(t, reopened.Open(ctx))
	assert.Equal(t, 2, reopened.Stats().NumDocs)
}

func TestCommitPointer_Swap(t *testing.T) {
	ctx := context.Background()
	p := openMemory(t).CommitPointer()

	cur, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)

	require.NoError(t, p.Swap(ctx, "", "segments_1"))
	assert.ErrorIs(t, p.Swap(ctx, "", "segments_2"), index.ErrConcurrentCommit)

	cur, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "segments_1", cur)
}
