package client

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned without a network call when every configured
	// credential has exhausted its rate limit.
	ErrRateLimited = errors.New("request blocked: rate limit exhausted")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 403/429 responses caused by rate limiting.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// FieldError is a single validation failure reported by GitHub.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

// APIError represents a GitHub API error with additional context.
type APIError struct {
	StatusCode       int
	Class            ErrorClass
	Message          string
	DocumentationURL string
	Errors           []FieldError
	Err              error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "github %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "; %s.%s %s", fe.Resource, fe.Field, fe.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsRateLimited reports a rate limit rejection.
func (e *APIError) IsRateLimited() bool {
	return e.Class == ErrorClassRateLimit
}

// IsValidationFailed reports a 422 with field errors.
func (e *APIError) IsValidationFailed() bool {
	return e.StatusCode == 422
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors will not change on retry
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		// Retried after rotating to another credential
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}
