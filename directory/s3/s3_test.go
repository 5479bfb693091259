package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hsearch/directory"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockClient) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.UploadPartOutput)
	return out, args.Error(1)
}

func (m *mockClient) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockClient) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockClient) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, args.Error(1)
}

func TestDirectory_Open(t *testing.T) {
	client := new(mockClient)
	dir := NewDirectory(client, "bucket", WithPrefix("idx"))

	t.Run("not found", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
			return *in.Key == "idx/missing"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := dir.Open(context.Background(), "missing")
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})

	t.Run("ranged read", func(t *testing.T) {
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
			return *in.Bucket == "bucket" && *in.Key == "idx/_0.seg"
		})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil).Once()
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Key == "idx/_0.seg" && *in.Range == "bytes=6-9"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("rld!"))}, nil).Once()

		in, err := dir.Open(context.Background(), "_0.seg")
		require.NoError(t, err)
		assert.Equal(t, int64(10), in.Size())

		buf := make([]byte, 8)
		n, err := in.ReadAt(buf, 6)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "rld!", string(buf[:n]))

		_, err = in.ReadAt(buf, 10)
		assert.ErrorIs(t, err, io.EOF)
	})

	client.AssertExpectations(t)
}

func TestDirectory_PutDeleteList(t *testing.T) {
	client := new(mockClient)
	dir := NewDirectory(client, "bucket", WithPrefix("idx/"))
	ctx := context.Background()

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Key == "idx/segments_1" && in.ChecksumCRC32C != nil && aws.ToInt64(in.ContentLength) == 5
	})).Return(&s3.PutObjectOutput{}, nil).Once()
	require.NoError(t, dir.Put(ctx, "segments_1", []byte("hello")))

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == "idx/_0.seg"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()
	require.NoError(t, dir.Delete(ctx, "_0.seg"))

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return *in.Prefix == "idx/_" && in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
		Contents:              []types.Object{{Key: aws.String("idx/_1.seg")}},
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken != nil && *in.ContinuationToken == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{Key: aws.String("idx/_0.seg")}, {Key: aws.String("idx/_sub/x")}},
	}, nil).Once()

	names, err := dir.List(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{"_0.seg", "_1.seg"}, names)

	client.AssertExpectations(t)
}

func TestDirectory_Closed(t *testing.T) {
	dir := NewDirectory(new(mockClient), "bucket")
	require.NoError(t, dir.Close())

	ctx := context.Background()
	_, err := dir.Open(ctx, "x")
	assert.ErrorIs(t, err, directory.ErrClosed)
	assert.ErrorIs(t, dir.Put(ctx, "x", nil), directory.ErrClosed)
	assert.ErrorIs(t, dir.Delete(ctx, "x"), directory.ErrClosed)
	_, err = dir.List(ctx, "")
	assert.ErrorIs(t, err, directory.ErrClosed)
}

func TestCRC32CBase64(t *testing.T) {
	// CRC32C("hello") = 0x9a71bb4c
	assert.Equal(t, "mnG7TA==", crc32cBase64([]byte("hello")))
}
