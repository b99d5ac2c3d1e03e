package models

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid field with enough detail for
// the caller to correct it without guessing.
type ValidationError struct {
	Field          string `json:"field"`
	ExpectedFormat string `json:"expected_format"`
	ActualValue    string `json:"actual_value"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field %q: expected %s, got %s",
		e.Field, e.ExpectedFormat, e.ActualValue)
}

// ValidationErrors aggregates every violation found in one validation pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("problem validation failed: %s", strings.Join(msgs, "; "))
}

func newValidationError(field, expected string, actual interface{}) ValidationError {
	return ValidationError{
		Field:          field,
		ExpectedFormat: expected,
		ActualValue:    fmt.Sprintf("%v", actual),
	}
}
