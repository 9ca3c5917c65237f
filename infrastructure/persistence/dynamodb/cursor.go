package dynamodb

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeCursor turns a LastEvaluatedKey into an opaque continuation
// token: attribute values flatten to plain JSON, then base64url. The
// token is deterministic and reversible but carries no ordering or
// authenticity guarantees; clients must treat it as opaque.
func EncodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	var plain map[string]interface{}
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", err
	}

	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor reverses EncodeCursor. ok is false for any malformed
// token: bad base64, bad JSON, or a non-object payload. Callers reject
// those requests with a validation error rather than scanning from the
// beginning.
func DecodeCursor(token string) (map[string]types.AttributeValue, bool) {
	if token == "" {
		return nil, true
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}

	var plain map[string]interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, false
	}
	if len(plain) == 0 {
		return nil, false
	}

	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, false
	}

	return key, true
}
