// Package dto defines API request/response types and error handling.
//
// Request types carry path/query/json struct tags for parameter binding and
// implement Validatable. Response types use string ids and RFC3339
// timestamps for JSON serialization. Structured errors pair an HTTP status
// code with a machine-readable error code so clients can branch without
// parsing messages.
//
// Conversion from storage and analysis errors to the coded taxonomy lives
// in the handlers package; dto itself stays free of domain imports.
package dto

import (
	"fmt"
	"maps"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidReference is returned when a document, folder, graph
	// or library id is structurally malformed.
	ErrorCodeInvalidReference ErrorCode = "INVALID_REFERENCE"

	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeConflict is returned when an upload batch collides with
	// existing documents and no resolution was requested.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeFolderNotEmpty is returned when deleting a folder that still
	// holds documents or subfolders.
	ErrorCodeFolderNotEmpty ErrorCode = "FOLDER_NOT_EMPTY"

	// ErrorCodeSizeLimitExceeded is returned when a file or batch exceeds a
	// configured size ceiling.
	ErrorCodeSizeLimitExceeded ErrorCode = "SIZE_LIMIT_EXCEEDED"
	// ErrorCodeUnsupportedType is returned when content is neither accepted
	// text nor an allowed image format.
	ErrorCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	// ErrorCodePayloadTooLarge is returned when the raw request body exceeds
	// the transport limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrorCodeRateLimited is returned when a rate limit bucket is empty.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrorCodeDependencyUnavailable is returned when the analysis provider
	// cannot be reached or rejects the request.
	ErrorCodeDependencyUnavailable ErrorCode = "DEPENDENCY_UNAVAILABLE"
	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetails defines the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName)
}

// InvalidReference creates a 400 Bad Request error for a malformed id.
func InvalidReference(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidReference, message)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeConflict, message)
}

// FolderNotEmpty creates a 409 Conflict error for a non-empty folder.
func FolderNotEmpty() *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeFolderNotEmpty, "folder still holds documents or subfolders")
}

// SizeLimitExceeded creates a 413 error for an oversized file or batch.
func SizeLimitExceeded(message string, limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodeSizeLimitExceeded, message).
		WithDetail("limit", limit)
}

// UnsupportedType creates a 415 error for rejected content.
func UnsupportedType(message string) *APIError {
	return NewAPIError(http.StatusUnsupportedMediaType, ErrorCodeUnsupportedType, message)
}

// PayloadTooLarge creates a 413 error for an oversized request body.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "request body too large").
		WithDetail("limit", limit)
}

// RateLimitExceeded creates a 429 error with a Retry-After hint in seconds.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded").
		WithDetail("retryAfter", retryAfter)
}

// DependencyUnavailable creates a 502 error for a failing upstream provider.
func DependencyUnavailable(message string) *APIError {
	return NewAPIError(http.StatusBadGateway, ErrorCodeDependencyUnavailable, message)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
