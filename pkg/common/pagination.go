package common

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "savinggrace-backend/pkg/errors"
)

const (
	// DefaultPageSize applies when page_size is omitted.
	DefaultPageSize = 50
	// MaxPageSize is the inclusive upper bound for page_size.
	MaxPageSize = 100
)

// PaginationParams are the client-facing pagination parameters shared by
// every list endpoint.
type PaginationParams struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	NextToken string `json:"next_token,omitempty"`
}

// ExtractPaginationParams parses and validates page, page_size and
// next_token from the query string. Out-of-range values are rejected,
// not clamped.
func ExtractPaginationParams(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Page:     1,
		PageSize: DefaultPageSize,
	}

	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.NewFieldValidationError("page", "page must be an integer")
		}
		if page < 1 {
			return params, apperrors.NewFieldValidationError("page", "page must be >= 1")
		}
		params.Page = page
	}

	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.NewFieldValidationError("page_size", "page_size must be an integer")
		}
		if size < 1 || size > MaxPageSize {
			return params, apperrors.NewFieldValidationError("page_size",
				fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize))
		}
		params.PageSize = size
	}

	params.NextToken = q.Get("next_token")

	return params, nil
}

// PaginationInfo is the pagination half of a paginated response.
type PaginationInfo struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	NextToken  string `json:"next_token,omitempty"`
}

// PaginatedResult is the data payload of a list response.
type PaginatedResult struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// CalculateTotalPages returns the page count for a total at a page size.
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// NewPaginatedResult assembles the pagination envelope. totalCount from a
// filtered scan reflects only the fetched set, not the whole table; the
// planner documents that limitation and callers pass it through as-is.
func NewPaginatedResult(items interface{}, params PaginationParams, totalCount int, nextToken string) PaginatedResult {
	return PaginatedResult{
		Items: items,
		Pagination: PaginationInfo{
			Page:       params.Page,
			PageSize:   params.PageSize,
			TotalCount: totalCount,
			TotalPages: CalculateTotalPages(totalCount, params.PageSize),
			NextToken:  nextToken,
		},
	}
}
