// internal/leasecalc/convention.go
package leasecalc

import (
	"fmt"
	"math"
)

// Compounding selects how an annual discount rate is applied to monthly rent.
type Compounding string

const (
	// CompoundingMonthlyEffective discounts at (1+r)^(1/12)-1 per month.
	CompoundingMonthlyEffective Compounding = "monthly_effective"
	// CompoundingMonthlyNominal discounts at r/12 per month.
	CompoundingMonthlyNominal Compounding = "monthly_nominal"
	// CompoundingAnnual treats each lease year as one payment discounted at r.
	CompoundingAnnual Compounding = "annual"
)

// Timing places each payment at the start (advance) or end (arrears) of its period.
type Timing string

const (
	TimingAdvance Timing = "advance"
	TimingArrears Timing = "arrears"
)

// Convention fixes the discounting rules for one analysis.
type Convention struct {
	Compounding Compounding `json:"compounding"`
	Timing      Timing      `json:"timing"`
}

// DefaultConvention is monthly-effective compounding with rent paid in advance.
func DefaultConvention() Convention {
	return Convention{Compounding: CompoundingMonthlyEffective, Timing: TimingAdvance}
}

// WithDefaults fills empty fields from DefaultConvention.
func (c Convention) WithDefaults() Convention {
	d := DefaultConvention()
	if c.Compounding == "" {
		c.Compounding = d.Compounding
	}
	if c.Timing == "" {
		c.Timing = d.Timing
	}
	return c
}

func (c Convention) String() string {
	return string(c.Compounding) + "/" + string(c.Timing)
}

// Validate rejects unknown compounding or timing values.
func (c Convention) Validate() error {
	switch c.Compounding {
	case CompoundingMonthlyEffective, CompoundingMonthlyNominal, CompoundingAnnual:
	default:
		return &InvalidParameterError{Field: "convention.compounding", Reason: fmt.Sprintf("unknown value %q", c.Compounding)}
	}
	switch c.Timing {
	case TimingAdvance, TimingArrears:
	default:
		return &InvalidParameterError{Field: "convention.timing", Reason: fmt.Sprintf("unknown value %q", c.Timing)}
	}
	return nil
}

// MonthlyRate converts an annual rate to the per-month rate of the convention.
// Annual compounding has no monthly rate; the effective equivalent is returned.
func (c Convention) MonthlyRate(annual float64) float64 {
	if c.Compounding == CompoundingMonthlyNominal {
		return annual / 12
	}
	return math.Pow(1+annual, 1.0/12) - 1
}

// AnnualizeMonthly is the inverse of MonthlyRate.
func (c Convention) AnnualizeMonthly(monthly float64) float64 {
	if c.Compounding == CompoundingMonthlyNominal {
		return monthly * 12
	}
	return math.Pow(1+monthly, 12) - 1
}

// discountFactor returns the present value of 1 paid in month t (0-based,
// counted from inception) under the convention.
func (c Convention) discountFactor(t int, annual float64) float64 {
	exp := t
	base := 1 + c.MonthlyRate(annual)
	if c.Compounding == CompoundingAnnual {
		exp = t / 12
		base = 1 + annual
	}
	if c.Timing == TimingArrears {
		exp++
	}
	return math.Pow(base, -float64(exp))
}

func checkRate(field string, r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return &InvalidRateError{Field: field, Value: r}
	}
	return nil
}
