package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/document"
	"github.com/hupe1980/hsearch/index"
)

func TestDirectory_Names(t *testing.T) {
	d := New(nil, "bucket", "/indexes/papers/")
	assert.Equal(t, "indexes/papers/_0.seg", d.key("_0.seg"))
	assert.Equal(t, "_0.seg", d.name("indexes/papers/_0.seg"))
	assert.Empty(t, d.name("indexes/papers/nested/_0.seg"))
	assert.Empty(t, d.name("indexes/books/_0.seg"))

	root := New(nil, "bucket", "")
	assert.Equal(t, "_0.seg", root.key("_0.seg"))
	assert.Equal(t, "_0.seg", root.name("_0.seg"))
}

func TestDirectory_Closed(t *testing.T) {
	d := New(nil, "bucket", "")
	require.NoError(t, d.Close())
	_, err := d.Open(context.Background(), "x")
	assert.ErrorIs(t, err, directory.ErrClosed)
	assert.ErrorIs(t, d.Put(context.Background(), "x", nil), directory.ErrClosed)
}

// TestDirectory_Integration requires a running MinIO instance, located by
// HSEARCH_MINIO_ENDPOINT (default localhost:9000).
func TestDirectory_Integration(t *testing.T) {
	endpoint := os.Getenv("HSEARCH_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	const bucket = "test-hsearch"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	dir := New(client, bucket, "it/"+t.Name())

	data := []byte("hello minio world")
	require.NoError(t, dir.Put(ctx, "greeting", data))

	got, err := directory.ReadAll(ctx, dir, "greeting")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	in, err := dir.Open(ctx, "greeting")
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = in.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(buf))
	require.NoError(t, in.Close())

	w := index.NewIndexWriter("papers", dir)
	require.NoError(t, w.Open(ctx))
	doc, err := document.NewBuilder("1").Build()
	require.NoError(t, err)
	require.NoError(t, w.Add(doc))
	require.NoError(t, w.Commit(ctx))

	reopened := index.NewIndexWriter("papers", dir)
	require.NoError(t, reopened.Open(ctx))
	assert.Equal(t, 1, reopened.Stats().NumDocs)

	names, err := dir.List(ctx, "")
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, dir.Delete(ctx, name))
	}
	_, err = dir.Open(ctx, "greeting")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}
