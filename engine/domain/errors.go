package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline failures.
var (
	// ErrNotFitted is returned when a transform is attempted before a
	// vectorizer model has been fitted or loaded.
	ErrNotFitted = errors.New("vectorizer not fitted")

	// ErrDegenerateCorpus is returned when a fit is attempted on an empty
	// corpus or one that yields no n-grams.
	ErrDegenerateCorpus = errors.New("degenerate corpus")

	// ErrArtifactIncompatible is returned when a persisted model bundle does
	// not match the expected format, or its dimensions do not match the
	// index it is being served against.
	ErrArtifactIncompatible = errors.New("artifact incompatible")

	// ErrStoreUnavailable is returned when the similarity search backend is
	// unreachable or fails. It is propagated, never treated as "no match".
	ErrStoreUnavailable = errors.New("reference store unavailable")
)

// Validation sentinels.
var (
	ErrEmptyQuery      = errors.New("empty query")
	ErrEmptyVendorName = errors.New("empty vendor name")
	ErrEmptyAddress    = errors.New("empty address")
	ErrNegativeWeight  = errors.New("negative weight")
	ErrInvalidTopK     = errors.New("top_k must be positive")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
