package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "savinggrace-backend/pkg/errors"
)

func TestExtractPaginationParamsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/donations", nil)

	params, err := ExtractPaginationParams(r)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 50, params.PageSize)
	assert.Empty(t, params.NextToken)
}

func TestExtractPaginationParamsExplicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/donations?page=3&page_size=25&next_token=abc123", nil)

	params, err := ExtractPaginationParams(r)
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.PageSize)
	assert.Equal(t, "abc123", params.NextToken)
}

func TestExtractPaginationParamsRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		query string
		field string
	}{
		{"page zero", "page=0", "page"},
		{"page negative", "page=-2", "page"},
		{"page not a number", "page=abc", "page"},
		{"page_size zero", "page_size=0", "page_size"},
		{"page_size over max", "page_size=101", "page_size"},
		{"page_size not a number", "page_size=ten", "page_size"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/donations?"+tc.query, nil)
			_, err := ExtractPaginationParams(r)
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, tc.field, appErr.Details["field"])
		})
	}
}

func TestPageSizeBoundCitedInMessage(t *testing.T) {
	r := httptest.NewRequest("GET", "/donations?page_size=101", nil)
	_, err := ExtractPaginationParams(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 1 and 100")
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(10, 0))
	assert.Equal(t, 1, CalculateTotalPages(10, 10))
	assert.Equal(t, 2, CalculateTotalPages(11, 10))
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
}

func TestNewPaginatedResult(t *testing.T) {
	params := PaginationParams{Page: 2, PageSize: 10}
	result := NewPaginatedResult([]string{"a", "b"}, params, 25, "tok")

	assert.Equal(t, 2, result.Pagination.Page)
	assert.Equal(t, 10, result.Pagination.PageSize)
	assert.Equal(t, 25, result.Pagination.TotalCount)
	assert.Equal(t, 3, result.Pagination.TotalPages)
	assert.Equal(t, "tok", result.Pagination.NextToken)
}
