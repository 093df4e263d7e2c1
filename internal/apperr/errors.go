package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error class.
type Code string

const (
	CodeValidation           Code = "validation"
	CodeConflict             Code = "conflict"
	CodeNotFound             Code = "not_found"
	CodeForbidden            Code = "forbidden"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeVerificationRequired Code = "verification_required"
	CodeInvalidCode          Code = "invalid_code"
	CodeExpiredCode          Code = "expired_code"
	CodeAlreadyVerified      Code = "already_verified"
	CodeNoImages             Code = "no_images"
	CodeDelivery             Code = "delivery"
	CodeUpstreamUpload       Code = "upstream_upload"
	CodeAuthToken            Code = "auth_token"
	CodeInternal             Code = "internal"
)

// FieldError is one violated input constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries a code, a client-safe message and optional details.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	Meta    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithMeta attaches a detail that is safe to show to the client.
func (e *Error) WithMeta(k string, v any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Validation builds a validation error listing every violated field.
func Validation(fields []FieldError) *Error {
	return &Error{Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

func NotFound(message string) *Error  { return New(CodeNotFound, message) }
func Forbidden(message string) *Error { return New(CodeForbidden, message) }
func Conflict(message string) *Error  { return New(CodeConflict, message) }

// Internal wraps an unexpected failure. The message is never shown to clients.
func Internal(err error, message string) *Error {
	return Wrap(err, CodeInternal, message)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	if ae, ok := As(err); ok {
		return ae.Code == code
	}
	return false
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeConflict, CodeInvalidCredentials, CodeVerificationRequired,
		CodeInvalidCode, CodeExpiredCode, CodeAlreadyVerified, CodeNoImages:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeAuthToken:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
