package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// AuthError means there is no usable session.
type AuthError struct{ DashboardError }

// ValidationError names the offending request field.
type ValidationError struct {
	DashboardError
	Field string
}

// UpstreamError carries the broker's own error code.
type UpstreamError struct {
	DashboardError
	Code string
}

// TransportError covers network failures, timeouts, non-2xx statuses and
// undecodable bodies.
type TransportError struct{ DashboardError }

type ConfigurationError struct{ DashboardError }

type DatabaseError struct{ DashboardError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{DashboardError{Message: message, Cause: cause}}
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{DashboardError: DashboardError{Message: message}, Field: field}
}

// NewUpstreamError resolves the friendly text for code, falling back to the
// broker message.
func NewUpstreamError(code, brokerMessage string) *UpstreamError {
	return &UpstreamError{
		DashboardError: DashboardError{Message: FriendlyMessage(code, brokerMessage)},
		Code:           code,
	}
}

func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{DashboardError{Message: message, Cause: cause}}
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{DashboardError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{DashboardError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsTokenError(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target) && target.Code == CodeTokenInvalid
}

// PublicMessage returns the text safe to show in the browser.
func PublicMessage(err error) string {
	var auth *AuthError
	var val *ValidationError
	var up *UpstreamError
	var tr *TransportError
	switch {
	case errors.As(err, &auth):
		return auth.Message
	case errors.As(err, &val):
		return val.Message
	case errors.As(err, &up):
		return up.Message
	case errors.As(err, &tr):
		return tr.Message
	default:
		return err.Error()
	}
}
