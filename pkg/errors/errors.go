package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound              = errors.New("loan not found")
	ErrInstallmentNotFound       = errors.New("installment not found")
	ErrInvalidScheduleParameters = errors.New("invalid schedule parameters")
	ErrScheduleAlreadyExists     = errors.New("schedule already exists")
	ErrInvalidStateTransition    = errors.New("invalid state transition")
	ErrNoOutstandingDebt         = errors.New("no outstanding debt")
	ErrLoanBusy                  = errors.New("loan is locked by another operation")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound              = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound       = "INSTALLMENT_NOT_FOUND"
	ErrCodeInvalidScheduleParameters = "INVALID_SCHEDULE_PARAMETERS"
	ErrCodeScheduleAlreadyExists     = "SCHEDULE_ALREADY_EXISTS"
	ErrCodeInvalidStateTransition    = "INVALID_STATE_TRANSITION"
	ErrCodeNoOutstandingDebt         = "NO_OUTSTANDING_DEBT"
	ErrCodeLoanBusy                  = "LOAN_BUSY"
	ErrCodeValidationFailed          = "VALIDATION_FAILED"
	ErrCodeDatabaseError             = "DATABASE_ERROR"
	ErrCodeCacheError                = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment with ID %s not found", installmentID),
		ErrInstallmentNotFound,
	)
}

func WrapInvalidScheduleParameters(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidScheduleParameters,
		fmt.Sprintf("Cannot generate schedule: %s", reason),
		ErrInvalidScheduleParameters,
	)
}

func WrapScheduleAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleAlreadyExists,
		fmt.Sprintf("Loan with ID %s already has a repayment schedule", loanID),
		ErrScheduleAlreadyExists,
	)
}

func WrapInvalidStateTransition(loanID, from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Loan %s cannot move from %s to %s", loanID, from, to),
		ErrInvalidStateTransition,
	)
}

func WrapNoOutstandingDebt(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoOutstandingDebt,
		fmt.Sprintf("Loan with ID %s has no unpaid installments", loanID),
		ErrNoOutstandingDebt,
	)
}

// WrapLoanBusy signals a per-loan lock conflict. Retryable by the caller.
func WrapLoanBusy(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanBusy,
		fmt.Sprintf("Another operation is in progress for loan %s, retry shortly", loanID),
		ErrLoanBusy,
	)
}

func WrapValidationFailed(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeValidationFailed,
		"Request validation failed",
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
