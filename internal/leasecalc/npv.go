// internal/leasecalc/npv.go
package leasecalc

import (
	"fmt"
	"math"
)

// cashFlow picks the annual amount paid in a given lease month (0-based from
// rent commencement) for a period.
type cashFlow func(p Period, leaseMonth int) float64

func rentFlow(p Period, _ int) float64 { return p.Rent }

func opexFlow(p Period, _ int) float64 { return p.Opex }

// ComputeNPV discounts the Rent column of the schedule month by month. Each
// month pays Rent/12, starting at inception.
func ComputeNPV(schedule RentSchedule, discountRate float64, conv Convention) (float64, error) {
	return ComputeNPVWithOffset(schedule, discountRate, conv, 0)
}

// ComputeNPVWithOffset is ComputeNPV with the first payment deferred by
// offsetMonths, as happens when a fixturing period precedes the term.
func ComputeNPVWithOffset(schedule RentSchedule, discountRate float64, conv Convention, offsetMonths int) (float64, error) {
	conv = conv.WithDefaults()
	if err := ValidateSchedule(schedule); err != nil {
		return 0, err
	}
	if err := checkRate("discount_rate", discountRate); err != nil {
		return 0, err
	}
	if err := conv.Validate(); err != nil {
		return 0, err
	}
	if offsetMonths < 0 {
		return 0, &InvalidParameterError{Field: "offset_months", Reason: "must not be negative"}
	}
	return presentValue(schedule, discountRate, conv, offsetMonths, rentFlow), nil
}

// ValidateSchedule checks that the schedule is non-empty and every period has a
// positive length and finite, non-negative amounts.
func ValidateSchedule(schedule RentSchedule) error {
	if len(schedule) == 0 {
		return &InvalidScheduleError{Field: "rent_schedule", Reason: "schedule is empty"}
	}
	for i, p := range schedule {
		if p.Months <= 0 {
			return &InvalidScheduleError{Field: fmt.Sprintf("rent_schedule[%d].months", i), Reason: "period length must be positive"}
		}
		if !finite(p.Rent) || p.Rent < 0 {
			return &InvalidScheduleError{Field: fmt.Sprintf("rent_schedule[%d].rent", i), Reason: "must be a finite, non-negative amount"}
		}
		if !finite(p.Opex) || p.Opex < 0 {
			return &InvalidScheduleError{Field: fmt.Sprintf("rent_schedule[%d].opex", i), Reason: "must be a finite, non-negative amount"}
		}
	}
	return nil
}

// AnnuityFactor is the present value of a level rent of 1 per year paid over
// the given number of months from inception.
func AnnuityFactor(months int, discountRate float64, conv Convention) float64 {
	conv = conv.WithDefaults()
	var sum float64
	for t := 0; t < months; t++ {
		sum += conv.discountFactor(t, discountRate) / 12
	}
	return sum
}

func presentValue(schedule RentSchedule, rate float64, conv Convention, offset int, flow cashFlow) float64 {
	var sum float64
	month := 0
	for _, p := range schedule {
		for i := 0; i < p.Months; i++ {
			amount := flow(p, month)
			if amount != 0 {
				sum += amount / 12 * conv.discountFactor(offset+month, rate)
			}
			month++
		}
	}
	return sum
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
