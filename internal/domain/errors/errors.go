package errors

import (
	"errors"
	"fmt"
)

var (
	// General errors
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrNoPasswordSet      = errors.New("account setup incomplete")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrTokenTypeMismatch  = errors.New("unexpected token type")
	ErrMissingToken       = errors.New("authorization token required")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrRateLimitExceeded  = errors.New("too many requests")

	// Employee errors
	ErrEmployeeNotFound = errors.New("employee not found")

	// Password change / OTP errors
	ErrInvalidOTP       = errors.New("invalid or expired verification code")
	ErrOTPRateLimit     = errors.New("an active verification code already exists")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrSamePassword     = errors.New("new password must differ from the current one")
)

// AppError carries an error with the HTTP status and stable machine code the
// API contract exposes.
type AppError struct {
	Err        error
	Message    string
	HTTPStatus int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(err error, message string, httpStatus int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		HTTPStatus: httpStatus,
		Code:       code,
	}
}

// IsNotFound reports whether err is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrNoPasswordSet) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenTypeMismatch) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidSession)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidOTP) ||
		errors.Is(err, ErrOTPRateLimit) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrSamePassword)
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Code returns the stable machine code for err, defaulting to AUTH_ERROR for
// unclassified authentication failures and INTERNAL_ERROR otherwise.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAccountInactive):
		return "ACCOUNT_INACTIVE"
	case errors.Is(err, ErrNoPasswordSet):
		return "NO_PASSWORD"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrInvalidSession):
		return "INVALID_SESSION"
	case errors.Is(err, ErrMissingToken):
		return "MISSING_TOKEN"
	case errors.Is(err, ErrExpiredToken):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrTokenTypeMismatch), errors.Is(err, ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrOTPRateLimit):
		return "OTP_RATE_LIMIT"
	case errors.Is(err, ErrInvalidOTP):
		return "INVALID_OTP"
	case errors.Is(err, ErrPasswordMismatch):
		return "PASSWORD_MISMATCH"
	case errors.Is(err, ErrSamePassword):
		return "SAME_PASSWORD"
	case errors.Is(err, ErrEmployeeNotFound):
		return "EMPLOYEE_NOT_FOUND"
	case errors.Is(err, ErrRateLimitExceeded):
		return "RATE_LIMIT_EXCEEDED"
	case IsUnauthorized(err):
		return "AUTH_ERROR"
	case IsValidation(err):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
