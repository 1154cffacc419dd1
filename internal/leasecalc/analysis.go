// internal/leasecalc/analysis.go
package leasecalc

import (
	"fmt"
)

// Validate runs every input check before any arithmetic so a run either
// succeeds completely or fails on the first offending field.
func (d Deal) Validate() error {
	if err := checkRate("discount_rate", d.DiscountRate); err != nil {
		return err
	}
	if err := ValidateSchedule(d.Schedule); err != nil {
		return err
	}
	if d.TermMonths <= 0 {
		return &InvalidParameterError{Field: "lease_terms.term_months", Reason: "must be positive"}
	}
	if got := d.Schedule.TotalMonths(); got != d.TermMonths {
		return &TermMismatchError{TermMonths: d.TermMonths, ScheduleMonths: got}
	}
	if d.FixturingMonths < 0 {
		return &InvalidParameterError{Field: "lease_terms.fixturing_months", Reason: "must not be negative"}
	}
	if d.FreeRentMonths < 0 || d.FreeRentMonths > d.TermMonths {
		return &InvalidParameterError{Field: "lease_terms.free_rent_months", Reason: fmt.Sprintf("must be between 0 and %d", d.TermMonths)}
	}
	switch d.Basis {
	case RentBasisNet, RentBasisGross, "":
	default:
		return &InvalidParameterError{Field: "lease_terms.rent_basis", Reason: fmt.Sprintf("unknown value %q", d.Basis)}
	}
	if err := d.Convention.WithDefaults().Validate(); err != nil {
		return err
	}
	if err := d.Costs.validate(); err != nil {
		return err
	}
	if d.Investment != nil {
		if err := d.Investment.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c DealCosts) validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"incentive_costs.ti_allowance", c.TIAllowance},
		{"incentive_costs.landlord_work", c.LandlordWork},
		{"leasing_costs.commissions", c.LeasingCommissions},
		{"incentive_costs.free_rent_value", c.FreeRentValue},
		{"leasing_costs.legal_fees", c.LegalFees},
	}
	for _, f := range fields {
		if !finite(f.value) || f.value < 0 {
			return &InvalidParameterError{Field: f.name, Reason: "must be a finite, non-negative amount"}
		}
	}
	return nil
}

// netRent is the landlord's net receipt per year in the given lease month,
// after free-rent abatement.
func (d Deal) netRent(p Period, leaseMonth int) float64 {
	quoted := p.Rent
	if leaseMonth < d.FreeRentMonths {
		quoted = 0
	}
	if d.Basis == RentBasisGross {
		return quoted - p.Opex
	}
	return quoted
}

// Analyze validates the deal, discounts its cash flows and derives NER, GER,
// the lease IRR and, when investment parameters are present, the breakeven
// thresholds.
func Analyze(d Deal) (*AnalysisResult, error) {
	d.Convention = d.Convention.WithDefaults()
	if d.Basis == "" {
		d.Basis = RentBasisNet
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	rate, conv := d.DiscountRate, d.Convention
	costs := d.Costs.Total()

	npvRent := presentValue(d.Schedule, rate, conv, 0, d.netRent)
	npvOpex := presentValue(d.Schedule, rate, conv, 0, opexFlow)
	factor := AnnuityFactor(d.TermMonths, rate, conv)

	ner := (npvRent - costs) / factor
	ger := ner + npvOpex/factor

	nerFix, gerFix := ner, ger
	if d.FixturingMonths > 0 {
		npvRentFix := presentValue(d.Schedule, rate, conv, d.FixturingMonths, d.netRent)
		npvOpexFix := presentValue(d.Schedule, rate, conv, d.FixturingMonths, opexFlow)
		factorFix := AnnuityFactor(d.TermMonths+d.FixturingMonths, rate, conv)
		nerFix = (npvRentFix - costs) / factorFix
		gerFix = nerFix + npvOpexFix/factorFix
	}

	result := &AnalysisResult{
		Convention:       conv,
		NPVRent:          npvRent,
		NPVOpex:          npvOpex,
		NPVCosts:         costs,
		NPVNet:           npvRent - costs,
		NER:              ner,
		GER:              ger,
		NERWithFixturing: nerFix,
		GERWithFixturing: gerFix,
		AnnuityFactor:    factor,
	}

	if costs > 0 {
		if monthly, ok := ComputeIRR(monthlyNetFlows(d)); ok {
			irr := conv.AnnualizeMonthly(monthly)
			result.LeaseIRR = &irr
		}
	}

	if d.Investment != nil {
		rates, err := ComputeBreakevenRates(*d.Investment, rate)
		if err != nil {
			return nil, err
		}
		result.Breakeven = &rates
		result.BreakevenMargin = rates.Margins(ner)
	}

	return result, nil
}
