package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrBudgetExceeded indicates that the judge call or token budget is spent.
	ErrBudgetExceeded = errors.New("judge budget exceeded")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrLogCorrupted indicates that a persisted result log cannot be decoded.
	ErrLogCorrupted = errors.New("result log corrupted")
)

// PredictorError represents a failed judge call.
// It includes the model, the question being judged and any rate limit
// information.
type PredictorError struct {
	// Model is the judge model that failed.
	Model string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error

	// RetryAfter indicates how long to wait before retrying, if applicable.
	RetryAfter *time.Duration
}

// Error implements the error interface for PredictorError.
func (e *PredictorError) Error() string {
	msg := fmt.Sprintf("predictor error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *PredictorError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the call can be
// repeated.
func (e *PredictorError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewPredictorError creates a new PredictorError with the given details.
func NewPredictorError(model, operation string, err error) *PredictorError {
	return &PredictorError{
		Model:     model,
		Operation: operation,
		Err:       err,
	}
}

// StoreError represents a failure reading or writing a persisted file.
type StoreError struct {
	// Path is the file involved.
	Path string

	// Operation is the name of the store operation that failed.
	Operation string

	// Line is the 1-based line number for decode failures, or 0.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("store error: operation=%s, path=%s, line=%d, err=%v", e.Operation, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("store error: operation=%s, path=%s, err=%v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(path, operation string, err error) *StoreError {
	return &StoreError{
		Path:      path,
		Operation: operation,
		Err:       err,
	}
}
