package domain

import (
	"errors"
	"fmt"
)

// Common domain errors raised while preparing or running an arena.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedMode indicates an arena mode outside the supported set.
	ErrUnsupportedMode = errors.New("unsupported arena mode")

	// ErrUnknownBaseline indicates that the baseline id is not a competitor.
	ErrUnknownBaseline = errors.New("baseline is not a competitor")

	// ErrReferenceMissing indicates that a required reference answer is absent.
	ErrReferenceMissing = errors.New("reference answer missing")

	// ErrNoTemplates indicates that the prompt template set is empty.
	ErrNoTemplates = errors.New("no prompt templates")
)

// ConfigurationError reports a setting that prevents the run from
// starting. It always unwraps to ErrInvalidConfiguration as well as to
// its cause.
type ConfigurationError struct {
	// Field names the offending setting.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: field=%s, err=%v", e.Field, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrInvalidConfiguration, e.Err} }

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// ReferenceMismatchError reports a question with no usable reference answer
// while a reference file is configured.
type ReferenceMismatchError struct {
	QuestionID QuestionID
	Reason     string
}

// Error implements the error interface for ReferenceMismatchError.
func (e *ReferenceMismatchError) Error() string {
	return fmt.Sprintf("reference mismatch: question_id=%s: %s", e.QuestionID, e.Reason)
}

// Unwrap returns ErrReferenceMissing.
func (e *ReferenceMismatchError) Unwrap() error { return ErrReferenceMissing }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets validation failures match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
