// Package s3 provides an S3 implementation of directory.Directory and a
// DynamoDB-backed commit pointer.
//
// # Usage
//
//	dir, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/papers"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	commits := s3.NewCommitStore(dynamodb.NewFromConfig(cfg), "hsearch-commits", "s3://my-bucket/indexes/papers")
//	idx, err := backend.CreateIndex(ctx, model, dir, hsearch.WithCommitPointer(commits))
//
// S3 writes are atomic per object but offer no compare-and-swap, so
// concurrent writers of one index must share a CommitStore.
package s3
