package service

import (
	"errors"
	"fmt"
)

// ErrBatchTooLarge is returned for batches above the configured cap
var ErrBatchTooLarge = errors.New("too many items in batch")

// ValidationError describes a malformed request item
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: %s %s", e.Index, e.Field, e.Reason)
}

// InferenceError wraps a failure while preparing features or scoring them
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err was caused by the request itself
func IsClientError(err error) bool {
	var vErr *ValidationError
	return errors.Is(err, ErrBatchTooLarge) || errors.As(err, &vErr)
}
