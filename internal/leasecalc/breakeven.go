// internal/leasecalc/breakeven.go
package leasecalc

import (
	"math"
)

// Threshold names used in the breakeven mapping.
const (
	ThresholdUnlevered                          = "unlevered"
	ThresholdInterestOnly                       = "interest_only"
	ThresholdFullyAmortizing                    = "fully_amortizing"
	ThresholdInterestOnlyWithCapitalRecovery    = "interest_only_with_capital_recovery"
	ThresholdFullyAmortizingWithCapitalRecovery = "fully_amortizing_with_capital_recovery"
)

// BreakevenRates are the minimum annual NERs per SF that cover each capital cost tier.
type BreakevenRates struct {
	Unlevered                          float64
	InterestOnly                       float64
	FullyAmortizing                    float64
	InterestOnlyWithCapitalRecovery    float64
	FullyAmortizingWithCapitalRecovery float64

	// Components, kept for reporting.
	Debt             float64
	Equity           float64
	MortgageConstant float64
	SinkingFund      float64
}

// Map returns the thresholds keyed by name.
func (b BreakevenRates) Map() map[string]float64 {
	return map[string]float64{
		ThresholdUnlevered:                          b.Unlevered,
		ThresholdInterestOnly:                       b.InterestOnly,
		ThresholdFullyAmortizing:                    b.FullyAmortizing,
		ThresholdInterestOnlyWithCapitalRecovery:    b.InterestOnlyWithCapitalRecovery,
		ThresholdFullyAmortizingWithCapitalRecovery: b.FullyAmortizingWithCapitalRecovery,
	}
}

// Margins returns ner minus each threshold.
func (b BreakevenRates) Margins(ner float64) map[string]float64 {
	out := b.Map()
	for k, v := range out {
		out[k] = ner - v
	}
	return out
}

// Validate checks the investment parameters for degenerate values.
func (p InvestmentParameters) Validate() error {
	if !finite(p.AcquisitionCost) || p.AcquisitionCost <= 0 {
		return &InvalidParameterError{Field: "investment.acquisition_cost", Reason: "must be positive"}
	}
	if !finite(p.LoanToValue) || p.LoanToValue < 0 || p.LoanToValue > 1 {
		return &InvalidParameterError{Field: "investment.ltv", Reason: "must be between 0 and 1"}
	}
	if !finite(p.AmortizationYears) || p.AmortizationYears <= 0 {
		return &InvalidParameterError{Field: "investment.amortization_years", Reason: "must be positive"}
	}
	if err := checkRate("investment.interest_rate", p.InterestRate); err != nil {
		return err
	}
	if !finite(p.DividendYield) || p.DividendYield < 0 {
		return &InvalidParameterError{Field: "investment.dividend_yield", Reason: "must not be negative"}
	}
	if !finite(p.BuildingAllocation) || p.BuildingAllocation < 0 || p.BuildingAllocation > 1 {
		return &InvalidParameterError{Field: "investment.building_allocation", Reason: "must be between 0 and 1"}
	}
	if !finite(p.DepreciationYears) || p.DepreciationYears <= 0 {
		return &InvalidParameterError{Field: "investment.depreciation_years", Reason: "must be positive"}
	}
	return nil
}

// ComputeBreakevenRates derives the unlevered, interest-only and fully
// amortizing thresholds, and the latter two with a sinking fund that recovers
// the building's depreciable basis at the discount rate.
func ComputeBreakevenRates(params InvestmentParameters, discountRate float64) (BreakevenRates, error) {
	if err := params.Validate(); err != nil {
		return BreakevenRates{}, err
	}
	mc, err := MortgageConstant(params.InterestRate, params.AmortizationYears)
	if err != nil {
		return BreakevenRates{}, err
	}
	sinking, err := SinkingFundPayment(params.AcquisitionCost*params.BuildingAllocation, discountRate, params.DepreciationYears)
	if err != nil {
		return BreakevenRates{}, err
	}

	debt := params.AcquisitionCost * params.LoanToValue
	equity := params.AcquisitionCost - debt
	equityReturn := equity * params.DividendYield

	interestOnly := debt*params.InterestRate + equityReturn
	amortizing := debt*mc + equityReturn

	return BreakevenRates{
		Unlevered:                          params.AcquisitionCost * params.DividendYield,
		InterestOnly:                       interestOnly,
		FullyAmortizing:                    amortizing,
		InterestOnlyWithCapitalRecovery:    interestOnly + sinking,
		FullyAmortizingWithCapitalRecovery: amortizing + sinking,
		Debt:                               debt,
		Equity:                             equity,
		MortgageConstant:                   mc,
		SinkingFund:                        sinking,
	}, nil
}

// SinkingFundPayment is the level annual payment that grows to fv after n years
// at rate: fv*rate/((1+rate)^n-1).
func SinkingFundPayment(fv, rate, years float64) (float64, error) {
	if err := checkRate("discount_rate", rate); err != nil {
		return 0, err
	}
	if !finite(years) || years <= 0 {
		return 0, &InvalidParameterError{Field: "investment.depreciation_years", Reason: "must be positive"}
	}
	return fv * rate / (math.Pow(1+rate, years) - 1), nil
}

// MortgageConstant is the annual debt service per unit of loan for a fully
// amortizing loan: rate/(1-(1+rate)^-years).
func MortgageConstant(rate, years float64) (float64, error) {
	if err := checkRate("investment.interest_rate", rate); err != nil {
		return 0, err
	}
	if !finite(years) || years <= 0 {
		return 0, &InvalidParameterError{Field: "investment.amortization_years", Reason: "must be positive"}
	}
	return rate / (1 - math.Pow(1+rate, -years)), nil
}
