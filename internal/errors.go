package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypePrivilegeEscalation ErrorType = "PRIVILEGE_ESCALATION"
	ErrorTypeInvariantViolation  ErrorType = "INVARIANT_VIOLATION"
	ErrorTypeConflict            ErrorType = "CONFLICT"
	ErrorTypeRateLimited         ErrorType = "RATE_LIMITED"
	ErrorTypeStorage             ErrorType = "STORAGE_ERROR"
	ErrorTypeInternal            ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidIdentity   ErrorCode = "INVALID_IDENTITY"
	ErrCodeUnknownPermission ErrorCode = "UNKNOWN_PERMISSION"
	ErrCodeUnknownRole       ErrorCode = "UNKNOWN_ROLE"
	ErrCodeInvalidCompany    ErrorCode = "INVALID_COMPANY"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeCompanyNotFound    ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodeMembershipNotFound ErrorCode = "MEMBERSHIP_NOT_FOUND"
	ErrCodeCompanyExists      ErrorCode = "COMPANY_EXISTS"

	ErrCodeNotAuthorized  ErrorCode = "NOT_AUTHORIZED"
	ErrCodeRoleEscalation ErrorCode = "ROLE_ESCALATION"
	ErrCodeLastAdmin      ErrorCode = "LAST_ADMIN"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"

	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewPrivilegeEscalationError is returned when an actor tries to grant or
// revoke authority at or above their own.
func NewPrivilegeEscalationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypePrivilegeEscalation,
		Code:       ErrCodeRoleEscalation,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewInvariantViolationError rejects a mutation before it is applied.
func NewInvariantViolationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInvariantViolation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewStorageError marks persistence as unavailable.
func NewStorageError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Code:       ErrCodeStoreUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewRateLimitedError() *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeRateLimited,
		Message:    "too many requests",
		StatusCode: http.StatusTooManyRequests,
	}
}

var (
	// ErrNotAuthorized is the only denial users ever see. It never names the
	// permission, role or company that failed.
	ErrNotAuthorized = NewForbiddenError("not authorized", ErrCodeNotAuthorized)

	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrCompanyNotFound    = NewNotFoundError("company not found", ErrCodeCompanyNotFound)
	ErrMembershipNotFound = NewNotFoundError("membership not found", ErrCodeMembershipNotFound)
	ErrLastAdmin          = NewInvariantViolationError("company must keep at least one admin", ErrCodeLastAdmin)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType reports whether err wraps an AppError of type t.
func IsErrorType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
