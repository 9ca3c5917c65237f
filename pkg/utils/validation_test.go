package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "savinggrace-backend/pkg/errors"
)

type createDonorPayload struct {
	Name  string `validate:"required,min=1,max=200"`
	Email string `validate:"omitempty,email"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(createDonorPayload{Name: "Harvest Market"})
	assert.NoError(t, err)

	err = ValidateStruct(createDonorPayload{})
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "name", appErr.Details["field"])
	assert.Contains(t, appErr.Message, "required")

	err = ValidateStruct(createDonorPayload{Name: "X", Email: "not-an-email"})
	require.Error(t, err)
	appErr = apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "email", appErr.Details["field"])
}

func TestValidateEnum(t *testing.T) {
	allowed := []string{"produce", "dairy", "protein"}
	assert.NoError(t, ValidateEnum("category", "dairy", allowed))

	err := ValidateEnum("category", "sweets", allowed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produce, dairy, protein")
}

func TestValidatePositive(t *testing.T) {
	assert.NoError(t, ValidatePositive("quantity", 0.5))
	assert.Error(t, ValidatePositive("quantity", 0))
	assert.Error(t, ValidatePositive("quantity", -3))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("pickup_date", "2026-03-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	got, err = ParseDate("pickup_date", "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())

	_, err = ParseDate("pickup_date", "15/03/2026")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDayBounds(t *testing.T) {
	assert.Equal(t, "2026-03-15T00:00:00Z", StartOfDay("2026-03-15"))
	assert.Equal(t, "2026-03-15T23:59:59Z", EndOfDay("2026-03-15"))

	// Full timestamps pass through untouched.
	assert.Equal(t, "2026-03-15T08:00:00Z", StartOfDay("2026-03-15T08:00:00Z"))
	assert.Equal(t, "2026-03-15T08:00:00Z", EndOfDay("2026-03-15T08:00:00Z"))
}
