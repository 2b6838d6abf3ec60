package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operational error values shared by the back-office services. They are
// mapped to HTTP statuses at the transport boundary.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrInactive   = errors.New("inactive")
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a field-to-message map for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// Error returns the formatted error message.
func (validationError ValidationError) Error() string {
	if len(validationError.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(validationError.Fields))
	for name := range validationError.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, validationError.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Unwrap links the error to the ErrValidation sentinel.
func (validationError ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a single-field ValidationError.
func Invalid(field string, message string) ValidationError {
	return ValidationError{Fields: map[string]string{field: message}}
}
