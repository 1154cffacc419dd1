// internal/leasecalc/errors.go
package leasecalc

import "fmt"

// InvalidScheduleError reports an unusable rent schedule.
type InvalidScheduleError struct {
	Field  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: %s: %s", e.Field, e.Reason)
}

// InvalidRateError reports a rate that would make a formula divide by zero
// or otherwise degenerate.
type InvalidRateError struct {
	Field string
	Value float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid rate: %s must be greater than 0 (got %g)", e.Field, e.Value)
}

// InvalidParameterError reports a malformed numeric or enumerated input.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter: %s: %s", e.Field, e.Reason)
}

// TermMismatchError is returned when the schedule does not cover the stated lease term.
type TermMismatchError struct {
	TermMonths     int
	ScheduleMonths int
}

func (e *TermMismatchError) Error() string {
	return fmt.Sprintf("rent schedule covers %d months but lease term is %d months", e.ScheduleMonths, e.TermMonths)
}
