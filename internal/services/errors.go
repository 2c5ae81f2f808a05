package services

import "fmt"

// ValidationError means the caller sent an unusable request.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ConfigurationError means the server is missing something it needs, such
// as the upstream credential. Nothing was sent upstream.
type ConfigurationError struct{ Message string }

func (e *ConfigurationError) Error() string { return e.Message }

// UpstreamError is a non-2xx answer from the language-model API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// TransportError means no upstream response was received at all.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "upstream transport: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

const (
	msgPromptRequired   = "Prompt is required"
	msgKeyNotConfigured = "API key not configured"
	msgUpstreamFallback = "Error calling Gemini API"
)
