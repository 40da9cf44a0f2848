package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes run errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a required table, sheet, or snapshot
	// source is missing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeIORead indicates a persistence-layer read fault.
	ErrCodeIORead ErrorCode = "IO_READ"

	// ErrCodeIOWrite indicates a persistence-layer write fault.
	ErrCodeIOWrite ErrorCode = "IO_WRITE"

	// ErrCodeConsolidationConflict is reserved for concurrent-writer
	// detection. Nothing raises it yet; the single-writer assumption
	// holds.
	ErrCodeConsolidationConflict ErrorCode = "CONSOLIDATION_CONFLICT"
)

// RunError is an error that aborts the current run. Extraction-level
// anomalies (malformed ledger entries) are not RunErrors; they are
// collected and reported, never fatal.
type RunError struct {
	Code    ErrorCode
	Message string

	// Table names the affected sheet for NOT_FOUND errors.
	Table string

	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Table != "" {
		msg += fmt.Sprintf(" (table=%s)", e.Table)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NOT_FOUND run error. Uses
// errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var re *RunError
	return errors.As(err, &re) && re.Code == ErrCodeNotFound
}

// NewMissingTableError reports a required sheet absent from the
// master workbook.
func NewMissingTableError(name string) *RunError {
	return &RunError{
		Code:    ErrCodeNotFound,
		Message: "required table not found",
		Table:   name,
	}
}

func readError(msg string, err error) *RunError {
	return &RunError{Code: ErrCodeIORead, Message: msg, Err: err}
}

func writeError(msg string, err error) *RunError {
	return &RunError{Code: ErrCodeIOWrite, Message: msg, Err: err}
}
