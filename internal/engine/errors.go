package engine

import (
	"errors"
	"fmt"
)

// MaterializationError represents an error detected while expanding a spec
// into concrete slices.
//
// Materialization errors include:
//   - Unknown variation: the registry has no definition for the type
//   - Invalid params: a transform factory rejected its parameters
//   - Duplicate slice: two variations produced the same (input, variation) key
//
// Materialization happens entirely before any backend call, so a
// MaterializationError always aborts the run with no side effects.
type MaterializationError struct {
	// Code identifies the error category.
	Code MaterializationErrorCode

	// Message is a human-readable description.
	Message string

	// VariationType identifies the variation being materialized, if any.
	VariationType string

	// VariationID identifies the concrete variation instance, if assigned.
	VariationID string

	// Err is the underlying cause, if any.
	Err error
}

// MaterializationErrorCode categorizes materialization errors.
type MaterializationErrorCode string

const (
	// ErrCodeUnknownVariation indicates the variation type has no registered
	// definition.
	ErrCodeUnknownVariation MaterializationErrorCode = "UNKNOWN_VARIATION"

	// ErrCodeInvalidParams indicates a transform factory rejected its params.
	ErrCodeInvalidParams MaterializationErrorCode = "INVALID_PARAMS"

	// ErrCodeDuplicateSlice indicates two variations collided on the same
	// (input, variation) key.
	ErrCodeDuplicateSlice MaterializationErrorCode = "DUPLICATE_SLICE"

	// ErrCodeTransformFailed indicates a transform errored while being
	// applied to a payload.
	ErrCodeTransformFailed MaterializationErrorCode = "TRANSFORM_FAILED"
)

// Error implements the error interface.
func (e *MaterializationError) Error() string {
	if e.VariationID != "" {
		return fmt.Sprintf("%s: %s (variation=%s, type=%s)", e.Code, e.Message, e.VariationID, e.VariationType)
	}
	if e.VariationType != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.VariationType)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MaterializationError) Unwrap() error { return e.Err }

// IsMaterializationError returns true if the error is a MaterializationError.
// Uses errors.As to handle wrapped errors.
func IsMaterializationError(err error) bool {
	var me *MaterializationError
	return errors.As(err, &me)
}

func newMaterializationError(code MaterializationErrorCode, vtype, vid, msg string, cause error) *MaterializationError {
	return &MaterializationError{
		Code:          code,
		Message:       msg,
		VariationType: vtype,
		VariationID:   vid,
		Err:           cause,
	}
}
