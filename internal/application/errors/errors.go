// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"
	"time"
)

// ValidationError indicates a request or document failed validation.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// ConfigurationError indicates a startup configuration problem.
// It is fatal: the application must not start.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}

// RateLimitError indicates a client exceeded its request budget.
type RateLimitError struct {
	ClientKey  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry after %s", e.ClientKey, e.RetryAfter.Round(time.Second))
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(clientKey string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		ClientKey:  clientKey,
		RetryAfter: retryAfter,
	}
}

// ModerationError indicates a moderation rule rejected a submission.
type ModerationError struct {
	Rule string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("message rejected by moderation rule: %s", e.Rule)
}

// NewModerationError creates a new moderation error.
func NewModerationError(rule string) *ModerationError {
	return &ModerationError{Rule: rule}
}

// StorageWriteError indicates a persisted value could not be written.
type StorageWriteError struct {
	Cause error
	Key   string
}

func (e *StorageWriteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage write failed for %q: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("storage write failed for %q", e.Key)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Cause
}

// NewStorageWriteError creates a new storage write error.
func NewStorageWriteError(key string, cause error) *StorageWriteError {
	return &StorageWriteError{
		Key:   key,
		Cause: cause,
	}
}
