// Package minio provides a directory.Directory for MinIO and other
// S3-compatible object stores.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/hsearch/directory"
)

// Directory stores the files of one index as objects of a bucket.
// MinIO offers no conditional writes; a single writer per index is assumed
// unless a shared index.CommitPointer is configured.
type Directory struct {
	client *minio.Client
	bucket string
	prefix string
	closed atomic.Bool
}

// New creates a Directory. prefix is prepended to all keys, e.g.
// "indexes/papers".
func New(client *minio.Client, bucket, prefix string) *Directory {
	return &Directory{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (d *Directory) key(name string) string {
	if d.prefix == "" {
		return name
	}
	return path.Join(d.prefix, name)
}

// name strips the directory prefix from an object key. It returns "" for
// keys outside the prefix or in nested paths.
func (d *Directory) name(key string) string {
	if d.prefix != "" {
		rest, ok := strings.CutPrefix(key, d.prefix+"/")
		if !ok {
			return ""
		}
		key = rest
	}
	if strings.Contains(key, "/") {
		return ""
	}
	return key
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open opens a file for reading.
func (d *Directory) Open(ctx context.Context, name string) (directory.Input, error) {
	if d.closed.Load() {
		return nil, directory.ErrClosed
	}
	key := d.key(name)

	info, err := d.client.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, name)
		}
		return nil, fmt.Errorf("minio: stat %s: %w", key, err)
	}
	return &objectInput{client: d.client, bucket: d.bucket, key: key, size: info.Size}, nil
}

// Put writes a whole file in one request.
func (d *Directory) Put(ctx context.Context, name string, data []byte) error {
	if d.closed.Load() {
		return directory.ErrClosed
	}
	key := d.key(name)
	_, err := d.client.PutObject(ctx, d.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	return nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (d *Directory) Delete(ctx context.Context, name string) error {
	if d.closed.Load() {
		return directory.ErrClosed
	}
	key := d.key(name)
	if err := d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("minio: remove %s: %w", key, err)
	}
	return nil
}

// List returns the file names starting with prefix, sorted.
func (d *Directory) List(ctx context.Context, prefix string) ([]string, error) {
	if d.closed.Load() {
		return nil, directory.ErrClosed
	}

	full := prefix
	if d.prefix != "" {
		full = d.prefix + "/" + prefix
	}

	var names []string
	for obj := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", full, obj.Err)
		}
		if name := d.name(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close marks the directory closed. The client is owned by the caller.
func (d *Directory) Close() error {
	d.closed.Store(true)
	return nil
}

// objectInput reads an object with ranged GETs.
type objectInput struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (in *objectInput) Size() int64 { return in.size }

func (in *objectInput) Close() error { return nil }

func (in *objectInput) ReadAt(p []byte, off int64) (int, error) {
	if off >= in.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p)) - 1
	if end >= in.size {
		end = in.size - 1
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := in.client.GetObject(context.Background(), in.bucket, in.key, opts)
	if err != nil {
		return 0, fmt.Errorf("minio: get %s: %w", in.key, err)
	}
	defer obj.Close()

	want := int(end - off + 1)
	n, err := io.ReadFull(obj, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var _ directory.Directory = (*Directory)(nil)
