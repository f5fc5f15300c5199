package errors

import (
	"errors"
	"fmt"
)

// CollectorError is the structured error type for the collector. It carries
// the code, category, and retryability that callers branch on, plus optional
// detail pairs for logging.
type CollectorError struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Network, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CollectorError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CollectorError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrap layers.
func (e *CollectorError) Is(target error) bool {
	if t, ok := target.(*CollectorError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *CollectorError) WithDetail(key, value string) *CollectorError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CollectorError) WithSuggestion(suggestion string) *CollectorError {
	e.Suggestion = suggestion
	return e
}

// New creates a CollectorError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CollectorError {
	return &CollectorError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CollectorError from an existing error.
// The error's message becomes the CollectorError message.
func Wrap(code string, err error) *CollectorError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreUnavailable creates a store availability error.
func StoreUnavailable(message string, cause error) *CollectorError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// EmbeddingFailed creates an embedding provider error.
func EmbeddingFailed(message string, cause error) *CollectorError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// NotFound creates an error for an id that resolves to nothing.
func NotFound(message string) *CollectorError {
	return New(ErrCodeNotFound, message, nil)
}

// MalformedInput creates an input validation error.
func MalformedInput(message string) *CollectorError {
	return New(ErrCodeMalformedInput, message, nil)
}

// PartialBatch reports an upsert that failed partway through its batches.
// Persisted is the number of documents already durably written.
func PartialBatch(persisted, total int, cause error) *CollectorError {
	e := New(ErrCodePartialBatch,
		fmt.Sprintf("persisted %d of %d documents before failure", persisted, total), cause)
	return e.WithDetail("persisted", fmt.Sprintf("%d", persisted)).
		WithDetail("total", fmt.Sprintf("%d", total))
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeNotFound
	}
	return false
}

// GetCode extracts the error code from a CollectorError.
// Returns empty string if not a CollectorError.
func GetCode(err error) string {
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CollectorError.
func GetCategory(err error) Category {
	var ce *CollectorError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
