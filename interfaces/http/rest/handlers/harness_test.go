package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/truora/minidyn/awsv2"
	"go.uber.org/zap"

	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	apperrors "savinggrace-backend/pkg/errors"
)

const testTable = "savinggrace-test"

// memDynamo adapts the in-memory fake to the SDK client method set. Its
// TransactWriteItems applies the items in order through the fake, since
// the fake itself does not execute transactions; the first failed
// condition cancels the remaining items, and earlier writes stay
// applied, so condition-bearing items must come first.
type memDynamo struct {
	*awsv2.Client
}

func (m memDynamo) PutItem(ctx context.Context, in *awsdynamodb.PutItemInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error) {
	return m.Client.PutItemWithContext(ctx, in, opts...)
}

func (m memDynamo) GetItem(ctx context.Context, in *awsdynamodb.GetItemInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error) {
	return m.Client.GetItemWithContext(ctx, in, opts...)
}

func (m memDynamo) UpdateItem(ctx context.Context, in *awsdynamodb.UpdateItemInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.UpdateItemOutput, error) {
	return m.Client.UpdateItemWithContext(ctx, in, opts...)
}

func (m memDynamo) DeleteItem(ctx context.Context, in *awsdynamodb.DeleteItemInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error) {
	return m.Client.DeleteItemWithContext(ctx, in, opts...)
}

func (m memDynamo) Query(ctx context.Context, in *awsdynamodb.QueryInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
	return m.Client.QueryWithContext(ctx, in, opts...)
}

func (m memDynamo) Scan(ctx context.Context, in *awsdynamodb.ScanInput, opts ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
	return m.Client.ScanWithContext(ctx, in, opts...)
}

func (m memDynamo) TransactWriteItems(ctx context.Context, in *awsdynamodb.TransactWriteItemsInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.TransactWriteItemsOutput, error) {
	for _, item := range in.TransactItems {
		var err error
		switch {
		case item.Update != nil:
			_, err = m.Client.UpdateItemWithContext(ctx, &awsdynamodb.UpdateItemInput{
				TableName:                 item.Update.TableName,
				Key:                       item.Update.Key,
				UpdateExpression:          item.Update.UpdateExpression,
				ConditionExpression:       item.Update.ConditionExpression,
				ExpressionAttributeNames:  item.Update.ExpressionAttributeNames,
				ExpressionAttributeValues: item.Update.ExpressionAttributeValues,
			})
		case item.Put != nil:
			_, err = m.Client.PutItemWithContext(ctx, &awsdynamodb.PutItemInput{
				TableName:                 item.Put.TableName,
				Item:                      item.Put.Item,
				ConditionExpression:       item.Put.ConditionExpression,
				ExpressionAttributeNames:  item.Put.ExpressionAttributeNames,
				ExpressionAttributeValues: item.Put.ExpressionAttributeValues,
			})
		case item.Delete != nil:
			_, err = m.Client.DeleteItemWithContext(ctx, &awsdynamodb.DeleteItemInput{
				TableName:                 item.Delete.TableName,
				Key:                       item.Delete.Key,
				ConditionExpression:       item.Delete.ConditionExpression,
				ExpressionAttributeNames:  item.Delete.ExpressionAttributeNames,
				ExpressionAttributeValues: item.Delete.ExpressionAttributeValues,
			})
		}
		if err != nil {
			var coded interface{ Code() string }
			if errors.As(err, &coded) && coded.Code() == "ConditionalCheckFailedException" {
				return nil, &types.TransactionCanceledException{
					Message: aws.String("transaction cancelled"),
					CancellationReasons: []types.CancellationReason{
						{Code: aws.String("ConditionalCheckFailed")},
					},
				}
			}
			return nil, err
		}
	}
	return &awsdynamodb.TransactWriteItemsOutput{}, nil
}

func stringAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{
		AttributeName: aws.String(name),
		AttributeType: types.ScalarAttributeTypeS,
	}
}

func gsi(name, pkAttr, skAttr string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(pkAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(skAttr), KeyType: types.KeyTypeRange},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

// testEnv holds the wired store, planner and error handler the handler
// tests share.
type testEnv struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
	blobs      *memBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	client := memDynamo{awsv2.NewClient()}

	_, err := client.Client.CreateTableWithContext(context.Background(), &awsdynamodb.CreateTableInput{
		TableName:   aws.String(testTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr(entities.AttrPK),
			stringAttr(entities.AttrSK),
			stringAttr(entities.AttrGSI1PK),
			stringAttr(entities.AttrGSI1SK),
			stringAttr(entities.AttrGSI2PK),
			stringAttr(entities.AttrGSI2SK),
			stringAttr(entities.AttrGSI3PK),
			stringAttr(entities.AttrGSI3SK),
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(entities.AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(entities.AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi("GSI1", entities.AttrGSI1PK, entities.AttrGSI1SK),
			gsi("GSI2", entities.AttrGSI2PK, entities.AttrGSI2SK),
			gsi("GSI3", entities.AttrGSI3PK, entities.AttrGSI3SK),
		},
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	store := dynamostore.NewStore(client, testTable, logger)
	planner := dynamostore.NewPlanner(store, dynamostore.DefaultIndexes(), logger)

	return &testEnv{
		store:      store,
		planner:    planner,
		errHandler: apperrors.NewErrorHandler(logger, false),
		logger:     logger,
		blobs:      &memBlobStore{puts: map[string][]byte{}},
	}
}

// memBlobStore captures artifacts instead of talking to object storage.
type memBlobStore struct {
	puts map[string][]byte
}

func (m *memBlobStore) PutBlob(_ context.Context, key string, body []byte, _ string) error {
	m.puts[key] = body
	return nil
}

func (m *memBlobStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?signature=test", nil
}

// jsonRequest builds a request with a JSON body and optional chi URL
// params given as alternating key, value pairs.
func jsonRequest(t *testing.T, method, target string, body interface{}, params ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return withURLParams(req, params...)
}

func getRequest(target string, params ...string) *http.Request {
	return withURLParams(httptest.NewRequest(http.MethodGet, target, nil), params...)
}

func withURLParams(req *http.Request, params ...string) *http.Request {
	if len(params) == 0 {
		return req
	}
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string                 `json:"message"`
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error, "unexpected error response: %s", rec.Body.String())
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func requireErrorMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, fragment string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	require.Contains(t, env.Error.Message, fragment)
}

// seedDonor writes a donor profile directly through the store.
func seedDonor(t *testing.T, env *testEnv, id, name string) {
	t.Helper()
	donor := entities.Donor{
		DonorID:   id,
		Name:      name,
		DonorType: entities.DonorTypeBusiness,
		Active:    true,
	}
	donor.SetKeys()
	record, err := marshalRecord(donor)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), record)
	require.NoError(t, err)
}

func seedRecipient(t *testing.T, env *testEnv, id, name string) {
	t.Helper()
	recipient := entities.Recipient{
		RecipientID:   id,
		Name:          name,
		HouseholdSize: 3,
		Active:        true,
	}
	recipient.SetKeys()
	record, err := marshalRecord(recipient)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), record)
	require.NoError(t, err)
}

func seedInventory(t *testing.T, env *testEnv, category, name string, quantity float64) string {
	t.Helper()
	itemID := entities.InventoryItemID(category, name)
	item := entities.InventoryItem{
		ItemID:   itemID,
		Category: entities.InventoryCategory(category),
		Name:     name,
		Quantity: quantity,
		Unit:     "lbs",
	}
	item.SetKeys()
	record, err := marshalRecord(item)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), record)
	require.NoError(t, err)
	return itemID
}

func fetchInventoryQuantity(t *testing.T, env *testEnv, category, name string) float64 {
	t.Helper()
	itemID := entities.InventoryItemID(category, name)
	pk, sk := entities.InventoryItemKey(category, itemID)
	record, err := env.store.Get(context.Background(), pk, sk)
	require.NoError(t, err)
	var item entities.InventoryItem
	require.NoError(t, unmarshalOne(record, &item))
	return item.Quantity
}

func seedDistributionScheduled(t *testing.T, env *testEnv, id, recipientID string, items []entities.DistributedItem) {
	t.Helper()
	distribution := entities.Distribution{
		DistributionID:   id,
		RecipientID:      recipientID,
		RecipientName:    "Recipient " + recipientID,
		DistributionDate: "2026-03-10T00:00:00Z",
		Status:           entities.DistributionStatusScheduled,
		ScheduledItems:   items,
	}
	distribution.SetKeys()
	record, err := marshalRecord(distribution)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), record)
	require.NoError(t, err)

	mirror := entities.DistributionMirror{
		DistributionID:   id,
		RecipientID:      recipientID,
		DistributionDate: distribution.DistributionDate,
		Status:           distribution.Status,
		ItemCount:        len(items),
	}
	mirror.SetKeys()
	mirrorRecord, err := marshalRecord(mirror)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), mirrorRecord)
	require.NoError(t, err)
}
