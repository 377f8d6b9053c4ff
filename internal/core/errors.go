// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data"}

	// Collector errors
	ErrCollectorFailed = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}

	// Model errors
	ErrArchitectureInvalid = &Error{Code: "ARCHITECTURE_INVALID", Message: "inconsistent classifier architecture"}
	ErrNonFiniteOutput     = &Error{Code: "NON_FINITE_OUTPUT", Message: "classifier produced a non-finite output"}

	// Evaluation errors
	ErrDegenerateEvaluation = &Error{Code: "DEGENERATE_EVALUATION", Message: "ROC-AUC undefined: labels contain a single class"}

	// Search errors
	ErrSearchSpaceInvalid = &Error{Code: "SEARCH_SPACE_INVALID", Message: "search space invalid"}
	ErrNoSuccessfulTrial  = &Error{Code: "NO_SUCCESSFUL_TRIAL", Message: "no trial completed successfully"}
	ErrBudgetExhausted    = &Error{Code: "BUDGET_EXHAUSTED", Message: "search budget exhausted before any trial completed"}

	// Archive errors
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "archive write failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
