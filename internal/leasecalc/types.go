// internal/leasecalc/types.go
package leasecalc

// Period is one row of a rent schedule. Rent and Opex are annual rates per
// square foot; Months is the length of the period.
type Period struct {
	Index  int
	Months int
	Rent   float64
	Opex   float64
}

// RentSchedule is an ordered, chronological list of periods.
type RentSchedule []Period

// TotalMonths returns the number of months the schedule covers.
func (s RentSchedule) TotalMonths() int {
	total := 0
	for _, p := range s {
		total += p.Months
	}
	return total
}

// AggregateRent returns the undiscounted base rent paid over the schedule, per SF.
func (s RentSchedule) AggregateRent() float64 {
	var sum float64
	for _, p := range s {
		sum += p.Rent * float64(p.Months) / 12
	}
	return sum
}

// RentBasis says whether the scheduled rent excludes (net) or includes (gross)
// operating costs.
type RentBasis string

const (
	RentBasisNet   RentBasis = "net"
	RentBasisGross RentBasis = "gross"
)

// DealCosts are one-time landlord outlays at inception, per SF.
type DealCosts struct {
	TIAllowance        float64
	LandlordWork       float64
	LeasingCommissions float64
	FreeRentValue      float64
	LegalFees          float64
}

// Total sums every cost component.
func (c DealCosts) Total() float64 {
	return c.TIAllowance + c.LandlordWork + c.LeasingCommissions + c.FreeRentValue + c.LegalFees
}

// InvestmentParameters drive the breakeven thresholds. AcquisitionCost is per SF;
// rates, LTV and allocation are decimals.
type InvestmentParameters struct {
	AcquisitionCost    float64
	LoanToValue        float64
	AmortizationYears  float64
	InterestRate       float64
	DividendYield      float64
	BuildingAllocation float64
	DepreciationYears  float64
}

// Deal is everything Analyze needs for one run.
type Deal struct {
	Schedule        RentSchedule
	Costs           DealCosts
	DiscountRate    float64
	TermMonths      int
	FixturingMonths int
	FreeRentMonths  int
	Basis           RentBasis
	Convention      Convention
	Investment      *InvestmentParameters
}

// AnalysisResult is produced once per Analyze call and never mutated.
type AnalysisResult struct {
	Convention Convention

	// NPVRent discounts net rent: quoted rent less opex on a gross basis.
	NPVRent  float64
	NPVOpex  float64
	NPVCosts float64
	NPVNet   float64

	NER float64
	GER float64

	NERWithFixturing float64
	GERWithFixturing float64

	// AnnuityFactor is the present value of 1 per year paid over the term.
	AnnuityFactor float64

	// LeaseIRR is nil when the deal has no upfront costs or no sign change.
	LeaseIRR *float64

	Breakeven       *BreakevenRates
	BreakevenMargin map[string]float64
}
