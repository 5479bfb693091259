package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/hsearch/index"
)

// DDBClient is the subset of the DynamoDB API used by CommitStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore keeps the current manifest of an index in DynamoDB, one item
// per commit. Conditional writes make concurrent commits fail instead of
// overwriting each other.
//
// Table schema:
//   - Partition key: base_uri (string), the location of the index
//   - Sort key: version (number), increasing per commit
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name hsearch-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	client    DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a commit store for the index at baseURI, for
// example "s3://bucket/indexes/papers".
func NewCommitStore(client DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{client: client, tableName: tableName, baseURI: baseURI}
}

// Load returns the current manifest name, or "" before the first commit.
func (s *CommitStore) Load(ctx context.Context) (string, error) {
	_, manifest, err := s.latest(ctx)
	return manifest, err
}

// Swap records next as the current manifest if old still is.
func (s *CommitStore) Swap(ctx context.Context, old, next string) error {
	version, current, err := s.latest(ctx)
	if err != nil {
		return err
	}
	if current != old {
		return fmt.Errorf("%w: expected %q, found %q", index.ErrConcurrentCommit, old, current)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: s.baseURI},
			"version":       &types.AttributeValueMemberN{Value: strconv.FormatUint(version+1, 10)},
			"manifest_path": &types.AttributeValueMemberS{Value: next},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: version %d already committed", index.ErrConcurrentCommit, version+1)
		}
		return fmt.Errorf("s3: commit version %d: %w", version+1, err)
	}
	return nil
}

func (s *CommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commits: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: commit item without version")
	}
	pathAttr, ok := item["manifest_path"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: commit item without manifest_path")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse commit version: %w", err)
	}
	return version, pathAttr.Value, nil
}

var _ index.CommitPointer = (*CommitStore)(nil)
