// Package errors provides standardized error handling for the calculators and
// BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cre-workers/internal/leasecalc"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors: malformed input, degenerate parameters, inconsistent terms.
const (
	ErrCodeParseError       ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidSchedule  ErrorCode = "INVALID_SCHEDULE"
	ErrCodeInvalidRate      ErrorCode = "INVALID_RATE"
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrCodeTermMismatch     ErrorCode = "TERM_MISMATCH"
)

// Technical errors raised around the calculation.
const (
	ErrCodeCalculationFailed ErrorCode = "CALCULATION_FAILED"
	ErrCodeCacheUnavailable  ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeStoreFailed       ErrorCode = "STORE_FAILED"
	ErrCodeIndexFailed       ErrorCode = "INDEX_FAILED"
	ErrCodeNotifyFailed      ErrorCode = "NOTIFY_FAILED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Field     string                 `json:"field,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the engine error the StandardError was built from.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// IsValidation reports whether the error is a caller input problem.
func (e *StandardError) IsValidation() bool {
	return GetErrorCategory(e.Code) == "VALIDATION"
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError creates a non-retryable error for undecodable JSON.
func NewParseError(err error) *StandardError {
	e := newError(ErrCodeParseError, "Input document is not valid JSON", err.Error(), false)
	e.cause = err
	return e
}

// NewInvalidInputError creates a non-retryable schema validation error.
func NewInvalidInputError(field, details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Input document failed validation", details, false)
	e.Field = field
	return e
}

// NewCalculationFailedError wraps an unexpected failure inside the engine.
func NewCalculationFailedError(err error) *StandardError {
	e := newError(ErrCodeCalculationFailed, "Lease calculation failed", err.Error(), false)
	e.cause = err
	return e
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	e := newError(ErrCodeCacheUnavailable, "Result cache unavailable", err.Error(), true)
	e.cause = err
	return e
}

// NewStoreFailedError creates a retryable persistence error.
func NewStoreFailedError(err error) *StandardError {
	e := newError(ErrCodeStoreFailed, "Failed to store analysis", err.Error(), true)
	e.cause = err
	return e
}

// NewIndexFailedError creates a retryable search index error.
func NewIndexFailedError(err error) *StandardError {
	e := newError(ErrCodeIndexFailed, "Failed to index analysis", err.Error(), true)
	e.cause = err
	return e
}

// NewNotifyFailedError creates a retryable notification error.
func NewNotifyFailedError(err error) *StandardError {
	e := newError(ErrCodeNotifyFailed, "Failed to publish analysis event", err.Error(), true)
	e.cause = err
	return e
}

// FromCalcError maps an engine error onto the taxonomy. Unknown errors become
// CALCULATION_FAILED; StandardErrors pass through unchanged.
func FromCalcError(err error) *StandardError {
	if err == nil {
		return nil
	}

	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}

	var (
		schedErr *leasecalc.InvalidScheduleError
		rateErr  *leasecalc.InvalidRateError
		paramErr *leasecalc.InvalidParameterError
		termErr  *leasecalc.TermMismatchError
		out      *StandardError
	)
	switch {
	case stderrors.As(err, &schedErr):
		out = newError(ErrCodeInvalidSchedule, "Rent schedule is invalid", schedErr.Reason, false)
		out.Field = schedErr.Field
	case stderrors.As(err, &rateErr):
		out = newError(ErrCodeInvalidRate, "Rate must be greater than zero", fmt.Sprintf("%s = %g", rateErr.Field, rateErr.Value), false)
		out.Field = rateErr.Field
	case stderrors.As(err, &paramErr):
		out = newError(ErrCodeInvalidParameter, "Parameter is invalid", paramErr.Reason, false)
		out.Field = paramErr.Field
	case stderrors.As(err, &termErr):
		out = newError(ErrCodeTermMismatch, "Rent schedule does not match the lease term", termErr.Error(), false)
		out.Field = "rent_schedule"
	default:
		return NewCalculationFailedError(err)
	}
	out.cause = err
	return out
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheUnavailable, ErrCodeStoreFailed, ErrCodeIndexFailed, ErrCodeNotifyFailed:
		return 3
	default:
		return 0 // validation errors: the caller must fix the input
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stdErr.Field != "" {
		vars["errorField"] = stdErr.Field
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeParseError, code == ErrCodeTermMismatch,
		strings.HasPrefix(codeStr, "INVALID"):
		return "VALIDATION"
	case code == ErrCodeCacheUnavailable, code == ErrCodeStoreFailed, code == ErrCodeIndexFailed:
		return "STORAGE"
	case code == ErrCodeNotifyFailed:
		return "NOTIFICATION"
	case code == ErrCodeCalculationFailed:
		return "CALCULATION"
	default:
		return "OTHER"
	}
}
