// Package dynamodb implements the key-value store adapter and query
// planner over the single-table schema.
package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	apperrors "savinggrace-backend/pkg/errors"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *awsdynamodb.UpdateItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *awsdynamodb.TransactWriteItemsInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.TransactWriteItemsOutput, error)
}

// Store is the key-value adapter over the single table. All reads and
// writes in the application go through it; entity handlers never touch
// the DynamoDB client directly.
type Store struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewStore creates a store over the given table.
func NewStore(client DynamoDBAPI, tableName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// TableName returns the backing table name, used when assembling
// transaction items.
func (s *Store) TableName() string {
	return s.tableName
}

// Client exposes the underlying client for transaction construction.
func (s *Store) Client() DynamoDBAPI {
	return s.client
}

// Page is one page of query or scan results. Count is the size of this
// page only; filtered scans undercount the full result set.
type Page struct {
	Items      []map[string]types.AttributeValue
	Count      int
	NextCursor map[string]types.AttributeValue
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Put writes an item, stamping created_at on first write and updated_at
// on every write, and returns the item as stored.
func (s *Store) Put(ctx context.Context, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	stored := s.stampTimestamps(item)

	_, err := s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      stored,
	})
	if err != nil {
		return nil, apperrors.NewStoreError("put", err)
	}

	return stored, nil
}

// PutIfAbsent writes an item only when no record exists at its key.
// Returns a conflict error when the key is already taken, leaving the
// existing record untouched.
func (s *Store) PutIfAbsent(ctx context.Context, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	stored := s.stampTimestamps(item)

	cond := expression.AttributeNotExists(expression.Name(entities.AttrPK)).
		And(expression.AttributeNotExists(expression.Name(entities.AttrSK)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewStoreError("put", err)
	}

	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      stored,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, apperrors.NewConflictError("record already exists")
		}
		return nil, apperrors.NewStoreError("put", err)
	}

	return stored, nil
}

// Get reads the record at (pk, sk). A missing record is a NotFound
// error; callers re-attribute it to their entity.
func (s *Store) Get(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return nil, apperrors.NewStoreError("get", err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NewNotFoundError("Record", pk)
	}

	return out.Item, nil
}

// Update applies a partial SET of the given attributes, refreshes
// updated_at, and returns the full updated record. The update is
// guarded by attribute_exists(PK), so updating a missing record is
// NotFound rather than an upsert. An extra condition tightens the
// guard; its failure also reports as NotFound, so callers needing a
// conflict should read first or use a transaction.
func (s *Store) Update(ctx context.Context, pk, sk string, updates map[string]interface{}, extraCond *expression.ConditionBuilder) (map[string]types.AttributeValue, error) {
	upd := expression.Set(expression.Name("updated_at"), expression.Value(s.timestamp()))
	for name, value := range updates {
		upd = upd.Set(expression.Name(name), expression.Value(value))
	}

	cond := expression.AttributeExists(expression.Name(entities.AttrPK))
	if extraCond != nil {
		cond = cond.And(*extraCond)
	}

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewStoreError("update", err)
	}

	out, err := s.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       primaryKey(pk, sk),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, apperrors.NewNotFoundError("Record", pk)
		}
		return nil, apperrors.NewStoreError("update", err)
	}

	return out.Attributes, nil
}

// Delete removes the record at (pk, sk). Deleting an absent record
// succeeds; delete is idempotent.
func (s *Store) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       primaryKey(pk, sk),
	})
	if err != nil {
		return apperrors.NewStoreError("delete", err)
	}
	return nil
}

// QueryInput describes one key-condition query against the table or one
// of its indexes.
type QueryInput struct {
	IndexName    string
	KeyCondition expression.KeyConditionBuilder
	Filter       *expression.ConditionBuilder
	Limit        int32
	Cursor       map[string]types.AttributeValue
	Ascending    bool
}

// Query runs a key-condition query and returns one page.
func (s *Store) Query(ctx context.Context, in QueryInput) (*Page, error) {
	builder := expression.NewBuilder().WithKeyCondition(in.KeyCondition)
	if in.Filter != nil {
		builder = builder.WithFilter(*in.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewStoreError("query", err)
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(in.Ascending),
		ExclusiveStartKey:         in.Cursor,
	}
	if in.IndexName != "" {
		input.IndexName = aws.String(in.IndexName)
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, apperrors.NewStoreError("query", err)
	}

	return &Page{
		Items:      out.Items,
		Count:      len(out.Items),
		NextCursor: out.LastEvaluatedKey,
	}, nil
}

// ScanInput describes a filtered scan, the fallback when no index
// serves an access pattern.
type ScanInput struct {
	Filter *expression.ConditionBuilder
	Limit  int32
	Cursor map[string]types.AttributeValue
}

// Scan runs a filtered scan and returns one page. The filter applies
// after the page is read, so Count undercounts relative to the full
// table; callers surface page-local totals.
func (s *Store) Scan(ctx context.Context, in ScanInput) (*Page, error) {
	input := &awsdynamodb.ScanInput{
		TableName:         aws.String(s.tableName),
		ExclusiveStartKey: in.Cursor,
	}
	if in.Filter != nil {
		expr, err := expression.NewBuilder().WithFilter(*in.Filter).Build()
		if err != nil {
			return nil, apperrors.NewStoreError("scan", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, apperrors.NewStoreError("scan", err)
	}

	return &Page{
		Items:      out.Items,
		Count:      len(out.Items),
		NextCursor: out.LastEvaluatedKey,
	}, nil
}

// TransactWrite executes a write transaction. A cancellation caused by
// a failed condition reports as a conflict so callers can translate it
// into their domain error; any other failure is a store error.
func (s *Store) TransactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}

	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return apperrors.NewConflictError("transaction condition failed")
			}
		}
	}

	return apperrors.NewStoreError("transact_write", err)
}

func (s *Store) stampTimestamps(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	stored := make(map[string]types.AttributeValue, len(item)+2)
	for k, v := range item {
		stored[k] = v
	}

	ts := &types.AttributeValueMemberS{Value: s.timestamp()}
	if existing, ok := stored["created_at"]; !ok || isEmptyString(existing) {
		stored["created_at"] = ts
	}
	stored["updated_at"] = ts

	return stored
}

// isConditionalCheckFailed matches conditional failures from the real
// service (typed exception) and from coded API errors.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
		return true
	}

	var coded interface{ Code() string }
	return errors.As(err, &coded) && coded.Code() == "ConditionalCheckFailedException"
}

func isEmptyString(av types.AttributeValue) bool {
	s, ok := av.(*types.AttributeValueMemberS)
	return ok && s.Value == ""
}

func primaryKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		entities.AttrPK: &types.AttributeValueMemberS{Value: pk},
		entities.AttrSK: &types.AttributeValueMemberS{Value: sk},
	}
}
