// internal/leasecalc/effective_rent.go
package leasecalc

import "math"

// ComputeEffectiveRent converts an NPV into the level annual rent whose monthly
// payments, discounted on the same convention over termMonths, have the same
// present value. A flat schedule with no costs returns its own rent.
func ComputeEffectiveRent(npv float64, termMonths int, discountRate float64, conv Convention) (float64, error) {
	conv = conv.WithDefaults()
	if termMonths <= 0 {
		return 0, &InvalidParameterError{Field: "term_months", Reason: "must be positive"}
	}
	if err := checkRate("discount_rate", discountRate); err != nil {
		return 0, err
	}
	if err := conv.Validate(); err != nil {
		return 0, err
	}
	return npv / AnnuityFactor(termMonths, discountRate, conv), nil
}

// AnnualEffectiveRent is the closed-form annual annuity NPV*r/(1-(1+r)^-n).
// For payments in advance the result is divided by (1+r).
func AnnualEffectiveRent(npv, termYears, discountRate float64, timing Timing) (float64, error) {
	if !finite(termYears) || termYears <= 0 {
		return 0, &InvalidParameterError{Field: "term_years", Reason: "must be positive"}
	}
	if err := checkRate("discount_rate", discountRate); err != nil {
		return 0, err
	}
	ner := npv * discountRate / (1 - math.Pow(1+discountRate, -termYears))
	if timing == TimingAdvance || timing == "" {
		ner /= 1 + discountRate
	}
	return ner, nil
}
