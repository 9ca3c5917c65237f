package utils

import (
	"fmt"
	"time"

	apperrors "savinggrace-backend/pkg/errors"
)

// DateOnly is the calendar-date layout accepted alongside RFC 3339.
const DateOnly = "2006-01-02"

// NowRFC3339 returns the current UTC time in RFC 3339 format. All stored
// timestamps use this representation so lexical order matches time order.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatRFC3339 formats a time in UTC RFC 3339.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDate accepts an RFC 3339 timestamp or a bare calendar date and
// returns the parsed time in UTC.
func ParseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperrors.NewFieldValidationError(field,
		fmt.Sprintf("%s must be an ISO 8601 date or timestamp", field))
}

// ValidateISODate checks a date string without needing the parsed value.
func ValidateISODate(field, value string) error {
	_, err := ParseDate(field, value)
	return err
}

// EndOfDay pushes a bare calendar date to the last instant of that day so
// inclusive date-range filters cover the whole day. Timestamps with a
// time component pass through unchanged.
func EndOfDay(value string) string {
	if t, err := time.Parse(DateOnly, value); err == nil {
		return t.Add(24*time.Hour - time.Second).UTC().Format(time.RFC3339)
	}
	return value
}

// StartOfDay normalizes a bare calendar date to midnight UTC in RFC 3339.
// Timestamps with a time component pass through unchanged.
func StartOfDay(value string) string {
	if t, err := time.Parse(DateOnly, value); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return value
}

// StartOfToday returns midnight UTC today in RFC 3339. Expiration
// windows open here rather than at the current instant: stored
// expiration dates are day-normalized, so a window starting mid-day
// would skip items expiring today.
func StartOfToday() string {
	return time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
}

// DaysFromNow returns the RFC 3339 timestamp n days from now, used for
// expiration-window queries.
func DaysFromNow(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format(time.RFC3339)
}
