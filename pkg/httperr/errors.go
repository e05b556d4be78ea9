// Package httperr renders structured API errors with go-chi/render.
package httperr

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidParameter  = "INVALID_PARAMETER"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidUpload     = "INVALID_UPLOAD"
	CodeProcessingFailed  = "PROCESSING_FAILED"
	CodePoorDataQuality   = "POOR_DATA_QUALITY"
	CodeNoData            = "NO_DATA_AFTER_FILTERS"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// InvalidParameter reports a malformed query or form parameter.
func InvalidParameter(name string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidParameter,
		fmt.Sprintf("Invalid value for %s", name), err.Error())
}

// Internal hides the cause from the client.
func Internal() *APIError {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error")
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Render sets the response status from the wrapped error.
func (e *ErrorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Error.StatusCode)
	return nil
}

// Write renders err as an ErrorResponse.
func Write(w http.ResponseWriter, r *http.Request, err *APIError) {
	_ = render.Render(w, r, &ErrorResponse{Success: false, Error: err})
}
