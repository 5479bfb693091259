package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/hsearch/directory"
	"github.com/hupe1980/hsearch/internal/hash"
)

// Client is the subset of the S3 API used by Directory.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type options struct {
	prefix      string
	region      string
	partSize    int64
	concurrency int
	checksum    bool
}

// Option configures a Directory.
type Option func(*options)

// WithPrefix stores all files under the given key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRegion sets the AWS region used by New.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithPartSize sets the size from which files are uploaded in parts, and
// the part size. Default: 8MB.
func WithPartSize(n int64) Option {
	return func(o *options) {
		o.partSize = n
	}
}

// WithConcurrency sets the number of concurrent part uploads. Default: 5.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithChecksum enables CRC32C validation of single-part uploads.
// Default: true.
func WithChecksum(enabled bool) Option {
	return func(o *options) {
		o.checksum = enabled
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		partSize:    8 * 1024 * 1024,
		concurrency: 5,
		checksum:    true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Directory stores the files of one index as objects of a bucket.
type Directory struct {
	client   Client
	bucket   string
	opts     options
	uploader *manager.Uploader
	closed   atomic.Bool
}

// New creates a Directory using the default AWS credential chain.
func New(ctx context.Context, bucket string, optFns ...Option) (*Directory, error) {
	opts := applyOptions(optFns)

	var loadOpts []func(*config.LoadOptions) error
	if opts.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return NewDirectory(s3.NewFromConfig(cfg), bucket, optFns...), nil
}

// NewDirectory creates a Directory from an existing client.
func NewDirectory(client Client, bucket string, optFns ...Option) *Directory {
	opts := applyOptions(optFns)
	return &Directory{
		client: client,
		bucket: bucket,
		opts:   opts,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = opts.partSize
			u.Concurrency = opts.concurrency
		}),
	}
}

func (d *Directory) key(name string) string {
	if d.opts.prefix == "" {
		return name
	}
	return path.Join(d.opts.prefix, name)
}

// Open opens a file for reading. Reads are ranged GETs.
func (d *Directory) Open(ctx context.Context, name string) (directory.Input, error) {
	if d.closed.Load() {
		return nil, directory.ErrClosed
	}
	key := d.key(name)

	head, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, name)
		}
		return nil, fmt.Errorf("s3: head %s: %w", key, err)
	}

	return &objectInput{
		client: d.client,
		bucket: d.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Put uploads a whole file. Large files use a multipart upload.
func (d *Directory) Put(ctx context.Context, name string, data []byte) error {
	if d.closed.Load() {
		return directory.ErrClosed
	}
	key := d.key(name)

	if int64(len(data)) >= d.opts.partSize {
		_, err := d.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("s3: upload %s: %w", key, err)
		}
		return nil
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if d.opts.checksum {
		in.ChecksumCRC32C = aws.String(crc32cBase64(data))
	}
	if _, err := d.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3: put %s: %w", key, err)
	}
	return nil
}

// Delete removes a file. S3 does not report missing keys.
func (d *Directory) Delete(ctx context.Context, name string) error {
	if d.closed.Load() {
		return directory.ErrClosed
	}
	key := d.key(name)
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return nil
}

// List returns the file names starting with prefix, sorted.
func (d *Directory) List(ctx context.Context, prefix string) ([]string, error) {
	if d.closed.Load() {
		return nil, directory.ErrClosed
	}

	root := d.opts.prefix
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(root + prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", root+prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), root)
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
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

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// crc32cBase64 returns the checksum in the format S3 expects: big-endian
// bytes, base64 encoded.
func crc32cBase64(data []byte) string {
	sum := hash.CRC32C(data)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}

// objectInput reads an object with ranged GETs.
type objectInput struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (in *objectInput) Close() error { return nil }

func (in *objectInput) Size() int64 { return in.size }

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

	resp, err := in.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(in.bucket),
		Key:    aws.String(in.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, fmt.Errorf("s3: get %s: %w", in.key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var _ directory.Directory = (*Directory)(nil)
