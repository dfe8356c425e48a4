package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the error type surfaced through the HTTP API.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// StatusCode returns the HTTP status carried by the error.
func (e AppError) StatusCode() int {
	return e.HTTPCode
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

func ErrPermissionDenied(action string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_PERMISSION_DENIED,
		Message:  fmt.Sprintf("Permission denied: %s", action),
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

func ErrUnavailable(service string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_UNAVAILABLE,
		Message:  fmt.Sprintf("%s temporarily unavailable", service),
	}
}

// Authentication Errors
func ErrInvalidToken() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_INVALID_TOKEN,
		Message:  "Invalid authentication token",
	}
}

func ErrTokenExpired() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_TOKEN_EXPIRED,
		Message:  "Authentication token has expired",
	}
}

func ErrInvalidRefreshToken() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_INVALID_REFRESH_TOKEN,
		Message:  "Invalid refresh token",
	}
}

func ErrOAuthFailed(provider string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_AUTH_OAUTH_FAILED,
		Message:  fmt.Sprintf("OAuth authentication failed with %s", provider),
	}
}

func ErrOAuthStateMismatch() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_AUTH_OAUTH_STATE_MISMATCH,
		Message:  "OAuth state is invalid or expired",
	}
}

// Integration Errors
func ErrGoogleAPIFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_INTEGRATION_GOOGLE_FAILED,
		Message:  fmt.Sprintf("Google API call failed: %s", operation),
	}.WithDetail("operation", operation)
}

func ErrGoogleNotConnected(email string) AppError {
	return AppError{
		HTTPCode: http.StatusPreconditionFailed,
		Code:     ErrorCode_INTEGRATION_NOT_CONNECTED,
		Message:  "Google account is not connected",
	}.WithDetail("email", email)
}

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrEmailFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTEGRATION_EMAIL_FAILED,
		Message:  "Email delivery failed",
	}
}

// Notes ingestion Errors
func ErrSweepInProgress(job string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_NOTES_SWEEP_IN_PROGRESS,
		Message:  "A notes sweep is already running",
	}.WithDetail("job", job)
}

func ErrSweepFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_NOTES_SWEEP_FAILED,
		Message:  "Notes sweep failed",
	}
}

// Database Errors
func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}

func ErrDBTransactionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_TRANSACTION_FAILED,
		Message:  "Database transaction failed",
	}
}

// Custom Errors
func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  "Invalid payload",
	}
}

// ErrForbidden represents a forbidden error.
func ErrForbidden(message string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_PERMISSION_DENIED,
		Message:  message,
	}
}
