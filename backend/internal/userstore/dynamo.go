package userstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

// ScanAPI is the part of the DynamoDB client used by DynamoStore.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore reads users from a DynamoDB table. Order is the table's scan order.
type DynamoStore struct {
	client    ScanAPI
	tableName string
}

// NewDynamoStore creates a store scanning tableName.
func NewDynamoStore(client ScanAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// FetchUsers implements Store. Pages are followed until limit users are read or the
// table is exhausted.
func (s *DynamoStore) FetchUsers(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 {
		return []User{}, nil
	}

	users := make([]User, 0, limit)
	var startKey map[string]types.AttributeValue

	for len(users) < limit {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			Limit:             aws.Int32(int32(limit - len(users))), //nolint:gosec
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", s.tableName)
		}

		var page []User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, errors.Wrap(err, "failed to decode users")
		}
		users = append(users, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

var _ Store = (*DynamoStore)(nil)
