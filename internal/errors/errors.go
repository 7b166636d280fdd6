package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound     ErrorCode = "account_not_found"
	AccountInactive     ErrorCode = "account_inactive"
	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidInput        ErrorCode = "invalid_input"
	InsufficientFunds   ErrorCode = "insufficient_funds"
	DailyLimitExceeded  ErrorCode = "daily_limit_exceeded"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	DuplicateAccount    ErrorCode = "duplicate_account"
	StorageFailure      ErrorCode = "storage_failure"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the error code so the predefined errors compare with errors.Is
// even after WithDetails produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the predefined errors stay immutable.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Fatal reports whether the error means "outcome unknown" rather than
// "definitely rejected". Callers must not assume the operation did not happen.
func (e *AppError) Fatal() bool {
	return e.Code == StorageFailure
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound:
		return http.StatusNotFound
	case AccountInactive, InsufficientFunds, DailyLimitExceeded:
		return http.StatusUnprocessableEntity
	case InvalidAmount, InvalidInput, SameAccountTransfer:
		return http.StatusBadRequest
	case DuplicateAccount:
		return http.StatusConflict
	case StorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrAccountInactive     = NewAppError(AccountInactive, "account is deactivated")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be greater than zero")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "insufficient funds")
	ErrDailyLimitExceeded  = NewAppError(DailyLimitExceeded, "daily withdrawal limit exceeded")
	ErrSameAccountTransfer = NewAppError(SameAccountTransfer, "origin and destination accounts must differ")
	ErrDuplicateAccount    = NewAppError(DuplicateAccount, "account already exists")
)
