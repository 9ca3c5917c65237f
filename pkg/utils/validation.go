// Package utils holds small helpers shared across handlers: struct
// validation and time formatting.
package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "savinggrace-backend/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs validator tags on a request payload and translates
// failures into a single field-attributed validation error. The first
// failing field wins so clients get one actionable message at a time.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperrors.NewValidationError("invalid request payload")
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	return apperrors.NewFieldValidationError(field, describeFieldError(field, fe))
}

func describeFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "e164":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ValidateEnum checks a value against an allowed set, producing a
// field-attributed error naming the choices.
func ValidateEnum(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return apperrors.NewFieldValidationError(field,
		fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// ValidateNonEmpty rejects empty or all-whitespace strings.
func ValidateNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewFieldValidationError(field, fmt.Sprintf("%s is required", field))
	}
	return nil
}

// ValidatePositive rejects values that are not strictly positive.
func ValidatePositive(field string, value float64) error {
	if value <= 0 {
		return apperrors.NewFieldValidationError(field, fmt.Sprintf("%s must be greater than 0", field))
	}
	return nil
}
