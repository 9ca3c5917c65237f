// Package handlers implements the REST entity handlers. Each handler is
// constructor-injected with the store, planner and its collaborators;
// authorization happens in the routing middleware, not here.
package handlers

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// listRequest parses pagination parameters and decodes the continuation
// token. A malformed token is a validation error, not a silent restart
// from the beginning.
func listRequest(r *http.Request) (common.PaginationParams, map[string]types.AttributeValue, error) {
	params, err := common.ExtractPaginationParams(r)
	if err != nil {
		return params, nil, err
	}

	cursor, ok := dynamostore.DecodeCursor(params.NextToken)
	if !ok {
		return params, nil, apperrors.NewFieldValidationError("next_token", "invalid next_token")
	}

	return params, cursor, nil
}

// queryDateRange reads optional start_date/end_date query params.
// Calendar dates widen to full days so both bounds stay inclusive.
func queryDateRange(r *http.Request) (*dynamostore.DateRange, error) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")
	if start == "" && end == "" {
		return nil, nil
	}

	if start != "" {
		if err := utils.ValidateISODate("start_date", start); err != nil {
			return nil, err
		}
		start = utils.StartOfDay(start)
	}
	if end != "" {
		if err := utils.ValidateISODate("end_date", end); err != nil {
			return nil, err
		}
		end = utils.EndOfDay(end)
	}

	return &dynamostore.DateRange{Start: start, End: end}, nil
}

// unmarshalAll converts raw records to typed entities. Key attributes
// drop out of responses through the entities' JSON tags.
func unmarshalAll[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, apperrors.NewStoreError("unmarshal", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// unmarshalOne converts one raw record to a typed entity.
func unmarshalOne[T any](item map[string]types.AttributeValue, v *T) error {
	if err := attributevalue.UnmarshalMap(item, v); err != nil {
		return apperrors.NewStoreError("unmarshal", err)
	}
	return nil
}

// marshalRecord converts a typed entity to its stored shape.
func marshalRecord(v interface{}) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, apperrors.NewStoreError("marshal", err)
	}
	return item, nil
}

// expressionEquals builds an equality residual filter.
func expressionEquals(name string, value interface{}) expression.ConditionBuilder {
	return expression.Name(name).Equal(expression.Value(value))
}

// parseBody decodes and rejects malformed JSON bodies.
func parseBody(r *http.Request, v interface{}) error {
	if err := common.ParseJSONBody(r, v, maxBodyBytes); err != nil {
		return apperrors.NewValidationError("invalid JSON body")
	}
	return nil
}
