// Package errors defines the sentinel errors of the recommendation service
// and their mapping to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFitted is returned when a query arrives before the engine has
	// been fit. Recoverable by fitting first.
	ErrNotFitted = errors.New("engine not fitted")
	// ErrEmptyCatalog is returned when fit is attempted on zero books.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrEmptyVocabulary is returned when every candidate term fails the
	// document-frequency thresholds and no features survive.
	ErrEmptyVocabulary = errors.New("vocabulary is empty")
	// ErrBookNotFound marks an unknown book identifier on lookups that
	// require one to exist.
	ErrBookNotFound = errors.New("book not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
)

// AppError pairs a sentinel error with a human-readable message and an
// explicit HTTP status code.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel error into an AppError.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with a format string.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the handler should
// return. Precondition failures (engine not fitted) map to 409 so callers
// can distinguish them from not-found conditions.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFitted):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyCatalog), errors.Is(err, ErrEmptyVocabulary), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
