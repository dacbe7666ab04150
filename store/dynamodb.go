package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/approvalflow"
)

// DynamoDBStore implements approvalflow.RecordStore using AWS DynamoDB.
// Inserts and updates are conditional puts, so each record write is atomic
// and never turns into an upsert.
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed record store
func NewDynamoDBStore(client DynamoDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

func (s *DynamoDBStore) Save(ctx context.Context, sub *approvalflow.Submission) error {
	item, err := marshalSubmission(sub)
	if err != nil {
		return approvalflow.NewPersistenceError("save submission", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return approvalflow.NewConflictError(sub.ID)
		}
		return approvalflow.NewPersistenceError("save submission", err)
	}

	return nil
}

func (s *DynamoDBStore) GetByID(ctx context.Context, id string) (*approvalflow.Submission, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: submissionPK(id)},
			AttrSK: &types.AttributeValueMemberS{Value: submissionSK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get submission: %w", err)
	}

	if result.Item == nil {
		return nil, false, nil
	}

	var sub approvalflow.Submission
	if err := attributevalue.UnmarshalMap(result.Item, &sub); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal submission: %w", err)
	}

	return &sub, true, nil
}

func (s *DynamoDBStore) GetAll(ctx context.Context) ([]*approvalflow.Submission, error) {
	var subs []*approvalflow.Submission
	var lastEvaluatedKey map[string]types.AttributeValue

	// Paginate through all results
	for {
		scanInput := &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("entity_type = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: EntityTypeSubmission},
			},
			ConsistentRead: aws.Bool(true),
		}

		if lastEvaluatedKey != nil {
			scanInput.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := s.client.Scan(ctx, scanInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}

		for _, item := range result.Items {
			var sub approvalflow.Submission
			if err := attributevalue.UnmarshalMap(item, &sub); err != nil {
				return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
			}
			subs = append(subs, &sub)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	if subs == nil {
		subs = []*approvalflow.Submission{}
	}
	sortByCreatedAtThenID(subs)
	return subs, nil
}

// GetByStatus filters the consistent table scan. The status index is
// eventually consistent and would miss a transition that just committed.
func (s *DynamoDBStore) GetByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, status), nil
}

func (s *DynamoDBStore) Update(ctx context.Context, sub *approvalflow.Submission) error {
	item, err := marshalSubmission(sub)
	if err != nil {
		return approvalflow.NewPersistenceError("update submission", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return approvalflow.NewNotFoundError(sub.ID)
		}
		return approvalflow.NewPersistenceError("update submission", err)
	}

	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: submissionPK(id)},
			AttrSK: &types.AttributeValueMemberS{Value: submissionSK()},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, approvalflow.NewPersistenceError("delete submission", err)
	}

	return len(result.Attributes) > 0, nil
}

// CountByStatus aggregates the same consistent scan GetAll returns
func (s *DynamoDBStore) CountByStatus(ctx context.Context) (approvalflow.StatusCounts, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return approvalflow.StatusCounts{}, err
	}
	return countStatuses(all), nil
}

func (s *DynamoDBStore) ClearAll(ctx context.Context) (int, error) {
	subs, err := s.GetAll(ctx)
	if err != nil {
		return 0, approvalflow.NewPersistenceError("clear submissions", err)
	}

	removed := 0
	for _, sub := range subs {
		deleted, err := s.Delete(ctx, sub.ID)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}

	return removed, nil
}

// Close is a no-op; the AWS client owns its connections
func (s *DynamoDBStore) Close() error {
	return nil
}

// sortByCreatedAtThenID orders newest first. Scan order is arbitrary and the
// table keeps no insertion sequence, so equal timestamps fall back to id descending.
func sortByCreatedAtThenID(subs []*approvalflow.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].ID > subs[j].ID
	})
}

// marshalSubmission builds the table item including key and index attributes
func marshalSubmission(sub *approvalflow.Submission) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	item[AttrPK] = &types.AttributeValueMemberS{Value: submissionPK(sub.ID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: submissionSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeSubmission}
	item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: submissionGSI1PK(sub.Status)}
	item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: submissionGSI1SK(sub.CreatedAt, sub.ID)}

	return item, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

var _ approvalflow.RecordStore = (*DynamoDBStore)(nil)
