// Package errs holds the error taxonomy shared by the store, the dispatchers
// and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a missing or malformed caller-supplied field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	field := strings.TrimSpace(e.Field)
	if field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Missing builds a ValidationError for a required field that was not provided.
func Missing(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}

// ConfigurationError marks a subsystem that cannot serve because it is not configured.
type ConfigurationError struct {
	Component string
	Hint      string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s not configured", e.Component)
	if hint := strings.TrimSpace(e.Hint); hint != "" {
		msg += ": " + hint
	}
	return msg
}

// DeliveryError wraps a failed delivery to a single recipient.
type DeliveryError struct {
	Recipient int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
