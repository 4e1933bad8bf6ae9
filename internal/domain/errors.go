package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("a student with this email address is already registered")
	ErrInvalidInput   = errors.New("invalid input")
)

// ValidationError carries field-level validation messages. It is surfaced to
// API clients as a 422 with per-field detail and is never logged as a server
// error.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a message for the given field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field message was added.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is makes every ValidationError match ErrInvalidInput so callers can branch
// with errors.Is without caring about field detail.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
