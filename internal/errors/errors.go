// Package errors provides error handling utilities.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeComposition indicates a composition-time structural error
	TypeComposition Type = "COMPOSITION_ERROR"

	// TypeUnknownServiceOverride indicates an override referencing a service
	// absent from the baseline preset
	TypeUnknownServiceOverride Type = "UNKNOWN_SERVICE_OVERRIDE"

	// TypeInvalidRate indicates a rate outside its numeric domain
	TypeInvalidRate Type = "INVALID_RATE"

	// TypeInvalidQuantity indicates a quantity outside its numeric domain
	TypeInvalidQuantity Type = "INVALID_QUANTITY"

	// TypeIncompleteBucketAllowance indicates a half-configured allowance
	TypeIncompleteBucketAllowance Type = "INCOMPLETE_BUCKET_ALLOWANCE"

	// TypeMissingRequiredField indicates a type-mandatory field is absent
	TypeMissingRequiredField Type = "MISSING_REQUIRED_FIELD"

	// TypeEmptyServiceSet indicates a configuration with zero services
	TypeEmptyServiceSet Type = "EMPTY_SERVICE_SET"

	// TypeValidation indicates a configuration failed validation
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeParsing indicates a parsing error
	TypeParsing Type = "PARSING_ERROR"

	// TypeStorage indicates a persistence-layer error
	TypeStorage Type = "STORAGE_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// Composition creates a composition error
func Composition(message string) *Error {
	return New(TypeComposition, message)
}

// UnknownServiceOverride creates an unknown-service-override error
func UnknownServiceOverride(serviceID string) *Error {
	return Newf(TypeUnknownServiceOverride, "override references unknown service: %s", serviceID).
		WithContext("service_id", serviceID)
}

// InvalidRate creates an invalid rate error
func InvalidRate(serviceID string, rate int64) *Error {
	return Newf(TypeInvalidRate, "rate must be a non-negative integer in minor units, got %d", rate).
		WithContext("service_id", serviceID)
}

// InvalidQuantity creates an invalid quantity error
func InvalidQuantity(serviceID string, quantity int64) *Error {
	return Newf(TypeInvalidQuantity, "quantity must be a positive integer, got %d", quantity).
		WithContext("service_id", serviceID)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Storage creates a persistence-layer error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
