package generator

import (
	"errors"
	"fmt"
)

// Failure categories for a generation call. The worker treats them all as
// retryable; the categories exist so job messages and logs say what actually
// went wrong.
var (
	ErrAuthFailed    = errors.New("provider authentication failed")
	ErrModelNotFound = errors.New("model not found")
	ErrRateLimited   = errors.New("provider rate limited")
	ErrTimeout       = errors.New("generation timed out")
)

// GenerateError wraps a provider failure with the provider name.
type GenerateError struct {
	Provider string
	Err      error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}
