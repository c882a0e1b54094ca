package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Base error types
var (
	ErrValidation          = errors.New("validation failed")
	ErrNetwork             = errors.New("network failure")
	ErrRenderCapture       = errors.New("chart capture failed")
	ErrSerialization       = errors.New("serialization failed")
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrNotFound            = errors.New("not found")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeRenderCapture   ErrorType = "render_capture"
	ErrorTypeSerialization   ErrorType = "serialization"
	ErrorTypeUnknownResource ErrorType = "unknown_resource"
	ErrorTypeNotFound        ErrorType = "not_found"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// Error is the structured error returned across package boundaries.
type Error struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "fetch_range", "create")
	Resource   string // Resource type key if applicable
	Fields     []FieldError
	Err        error // Underlying error
	StatusCode int   // HTTP status code if applicable
}

func (e *Error) Error() string {
	detail := ""
	switch {
	case len(e.Fields) > 0:
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.String())
		}
		detail = strings.Join(parts, "; ")
	case e.Err != nil:
		detail = e.Err.Error()
	default:
		detail = string(e.Type)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s failed for %s: %s", e.Op, e.Resource, detail)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrValidation:
		return e.Type == ErrorTypeValidation
	case ErrNetwork:
		return e.Type == ErrorTypeNetwork
	case ErrRenderCapture:
		return e.Type == ErrorTypeRenderCapture
	case ErrSerialization:
		return e.Type == ErrorTypeSerialization
	case ErrUnknownResourceType:
		return e.Type == ErrorTypeUnknownResource
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	}

	return errors.Is(e.Err, target)
}

// New creates a new Error
func New(errorType ErrorType, op, resource string, err error) *Error {
	return &Error{
		Type:     errorType,
		Op:       op,
		Resource: resource,
		Err:      err,
	}
}

// WithStatusCode adds the HTTP status code to the error
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// Validation builds a field-level validation error.
func Validation(op, resource string, fields ...FieldError) error {
	e := New(ErrorTypeValidation, op, resource, nil)
	e.Fields = fields
	return e
}

// Network wraps a transport, status, or decode failure against the backend.
func Network(op, resource string, err error) error {
	return New(ErrorTypeNetwork, op, resource, err)
}

// NotFound reports a missing record.
func NotFound(op, resource string, err error) error {
	return New(ErrorTypeNotFound, op, resource, err)
}

// UnknownResourceType reports a key outside the registry.
func UnknownResourceType(key string) error {
	return New(ErrorTypeUnknownResource, "lookup", key, fmt.Errorf("%q is not a registered resource type", key))
}

// Serialization wraps a CSV or PDF assembly failure.
func Serialization(op, resource string, err error) error {
	return New(ErrorTypeSerialization, op, resource, err)
}

// RenderCapture wraps a chart capture failure.
func RenderCapture(op string, err error) error {
	return New(ErrorTypeRenderCapture, op, "", err)
}

// FieldErrors returns the field-level detail of a validation error, if any.
func FieldErrors(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Type != ErrorTypeNetwork {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408
}

// UserMessage renders the single message shown for a failed operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong. Please try again."
	}
	switch e.Type {
	case ErrorTypeValidation:
		if len(e.Fields) > 0 {
			parts := make([]string, 0, len(e.Fields))
			for _, f := range e.Fields {
				parts = append(parts, f.Message)
			}
			return strings.Join(parts, " ")
		}
		return "The submitted values are invalid."
	case ErrorTypeNotFound:
		return "The requested record no longer exists."
	case ErrorTypeNetwork:
		return "Could not reach the server. Your changes were not saved."
	case ErrorTypeSerialization:
		return "The export could not be generated."
	case ErrorTypeUnknownResource:
		return "Unknown energy type."
	default:
		return "Something went wrong. Please try again."
	}
}
