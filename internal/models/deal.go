// internal/models/deal.go
package models

import (
	"fmt"

	"cre-workers/internal/leasecalc"
)

// DealDocument is the input JSON document. Optional amounts are pointers so an
// absent value is never mistaken for a real zero.
type DealDocument struct {
	DealName       string                `json:"deal_name"`
	Property       Property              `json:"property"`
	LeaseTerms     LeaseTerms            `json:"lease_terms"`
	RentSchedule   []ScheduleRow         `json:"rent_schedule"`
	IncentiveCosts *IncentiveCosts       `json:"incentive_costs,omitempty"`
	LeasingCosts   *LeasingCosts         `json:"leasing_costs,omitempty"`
	DiscountRate   float64               `json:"discount_rate"`
	Convention     *leasecalc.Convention `json:"convention,omitempty"`
	Investment     *Investment           `json:"investment,omitempty"`
}

type Property struct {
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
	AreaSF  float64 `json:"area_sf"`
}

type LeaseTerms struct {
	TermMonths      int    `json:"term_months"`
	FixturingMonths *int   `json:"fixturing_months,omitempty"`
	FreeRentMonths  *int   `json:"free_rent_months,omitempty"`
	RentBasis       string `json:"rent_basis,omitempty"`
}

// ScheduleRow is one lease year. Rent and Opex are annual amounts per SF.
// Months defaults to 12, except that the last row absorbs a partial year.
type ScheduleRow struct {
	Year   int     `json:"year"`
	Rent   float64 `json:"rent"`
	Opex   float64 `json:"opex"`
	Months *int    `json:"months,omitempty"`
}

// IncentiveCosts are dollar totals for the premises.
type IncentiveCosts struct {
	TIAllowance   *float64 `json:"ti_allowance,omitempty"`
	LandlordWork  *float64 `json:"landlord_work,omitempty"`
	FreeRentValue *float64 `json:"free_rent_value,omitempty"`
}

// LeasingCosts are dollar totals, except CommissionPct which is a fraction of
// aggregate base rent.
type LeasingCosts struct {
	Commissions   *float64 `json:"commissions,omitempty"`
	CommissionPct *float64 `json:"commission_pct,omitempty"`
	LegalFees     *float64 `json:"legal_fees,omitempty"`
}

// Investment holds the breakeven inputs. AcquisitionCost is a dollar total.
type Investment struct {
	AcquisitionCost    float64 `json:"acquisition_cost"`
	LTV                float64 `json:"ltv"`
	AmortizationYears  float64 `json:"amortization_years"`
	InterestRate       float64 `json:"interest_rate"`
	DividendYield      float64 `json:"dividend_yield"`
	BuildingAllocation float64 `json:"building_allocation"`
	DepreciationYears  float64 `json:"depreciation_years"`
}

// PerSF converts the investment to per-square-foot engine parameters.
func (i Investment) PerSF(areaSF float64) leasecalc.InvestmentParameters {
	return leasecalc.InvestmentParameters{
		AcquisitionCost:    i.AcquisitionCost / areaSF,
		LoanToValue:        i.LTV,
		AmortizationYears:  i.AmortizationYears,
		InterestRate:       i.InterestRate,
		DividendYield:      i.DividendYield,
		BuildingAllocation: i.BuildingAllocation,
		DepreciationYears:  i.DepreciationYears,
	}
}

// Schedule builds the engine schedule. Rows must be in strictly increasing
// year order.
func (d *DealDocument) Schedule() (leasecalc.RentSchedule, error) {
	schedule := make(leasecalc.RentSchedule, 0, len(d.RentSchedule))
	covered := 0
	for i, row := range d.RentSchedule {
		if i > 0 && row.Year <= d.RentSchedule[i-1].Year {
			return nil, &leasecalc.InvalidScheduleError{
				Field:  fmt.Sprintf("rent_schedule[%d].year", i),
				Reason: "years must be strictly increasing",
			}
		}

		months := 12
		switch {
		case row.Months != nil:
			months = *row.Months
		case i == len(d.RentSchedule)-1:
			if rest := d.LeaseTerms.TermMonths - covered; rest > 0 && rest < 12 {
				months = rest
			}
		}

		schedule = append(schedule, leasecalc.Period{
			Index:  row.Year,
			Months: months,
			Rent:   row.Rent,
			Opex:   row.Opex,
		})
		covered += months
	}
	return schedule, nil
}

// ToDeal normalises the document to per-SF engine inputs. The returned slice
// names every optional cost that was absent from the document.
func (d *DealDocument) ToDeal(defaults leasecalc.Convention) (leasecalc.Deal, []string, error) {
	area := d.Property.AreaSF
	if !(area > 0) {
		return leasecalc.Deal{}, nil, &leasecalc.InvalidParameterError{Field: "property.area_sf", Reason: "must be positive"}
	}

	schedule, err := d.Schedule()
	if err != nil {
		return leasecalc.Deal{}, nil, err
	}

	var omitted []string
	perSF := func(field string, v *float64) float64 {
		if v == nil {
			omitted = append(omitted, field)
			return 0
		}
		return *v / area
	}

	incentives := IncentiveCosts{}
	if d.IncentiveCosts != nil {
		incentives = *d.IncentiveCosts
	}
	leasing := LeasingCosts{}
	if d.LeasingCosts != nil {
		leasing = *d.LeasingCosts
	}

	costs := leasecalc.DealCosts{
		TIAllowance:   perSF("incentive_costs.ti_allowance", incentives.TIAllowance),
		LandlordWork:  perSF("incentive_costs.landlord_work", incentives.LandlordWork),
		FreeRentValue: perSF("incentive_costs.free_rent_value", incentives.FreeRentValue),
		LegalFees:     perSF("leasing_costs.legal_fees", leasing.LegalFees),
	}
	switch {
	case leasing.Commissions == nil && leasing.CommissionPct == nil:
		omitted = append(omitted, "leasing_costs.commissions")
	default:
		if leasing.Commissions != nil {
			costs.LeasingCommissions += *leasing.Commissions / area
		}
		if leasing.CommissionPct != nil {
			costs.LeasingCommissions += *leasing.CommissionPct * schedule.AggregateRent()
		}
	}

	deal := leasecalc.Deal{
		Schedule:     schedule,
		Costs:        costs,
		DiscountRate: d.DiscountRate,
		TermMonths:   d.LeaseTerms.TermMonths,
		Basis:        leasecalc.RentBasis(d.LeaseTerms.RentBasis),
		Convention:   d.convention(defaults),
	}
	if d.LeaseTerms.FixturingMonths != nil {
		deal.FixturingMonths = *d.LeaseTerms.FixturingMonths
	}
	if d.LeaseTerms.FreeRentMonths != nil {
		deal.FreeRentMonths = *d.LeaseTerms.FreeRentMonths
	}
	if deal.FreeRentMonths > 0 && costs.FreeRentValue > 0 {
		return leasecalc.Deal{}, nil, &leasecalc.InvalidParameterError{
			Field:  "incentive_costs.free_rent_value",
			Reason: "cannot be combined with lease_terms.free_rent_months",
		}
	}
	if d.Investment != nil {
		params := d.Investment.PerSF(area)
		deal.Investment = &params
	}

	return deal, omitted, nil
}

// convention overlays the document's convention, if any, on the defaults.
func (d *DealDocument) convention(defaults leasecalc.Convention) leasecalc.Convention {
	conv := defaults.WithDefaults()
	if d.Convention == nil {
		return conv
	}
	if d.Convention.Compounding != "" {
		conv.Compounding = d.Convention.Compounding
	}
	if d.Convention.Timing != "" {
		conv.Timing = d.Convention.Timing
	}
	return conv
}
