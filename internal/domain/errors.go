package domain

import (
	"fmt"
	"strings"
)

// Error kinds surfaced on the wire.
const (
	KindValidation = "VALIDATION_ERROR"
	KindGateway    = "OPENROUTER_ERROR"
	KindUnknown    = "UNKNOWN"
)

// ValidationError reports one or more shape/bounds violations found in a
// client payload before any network call. It is never retried and always
// maps to a 400-class response.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// NewValidationError builds a single-violation error from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Violations: []string{fmt.Sprintf(format, args...)}}
}

// GatewayError reports an upstream LLM call failure: network error, non-2xx
// status, timeout, or an unparsable reply. StatusCode is zero when no HTTP
// status was received. Always maps to a 502-class response, never retried.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
	}
	return "gateway error: " + e.Message
}
