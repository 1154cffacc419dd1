// internal/workers/lease/breakeven-rates/models.go
package breakevenrates

import "cre-workers/internal/models"

type Input struct {
	Investment   models.Investment `json:"investment"`
	AreaSF       float64           `json:"area_sf"`
	DiscountRate float64           `json:"discount_rate"`
}

type Output struct {
	Breakeven  map[string]float64 `json:"breakeven"`
	Components Components         `json:"breakevenComponents"`
}

// Components are the per-SF building blocks of the thresholds.
type Components struct {
	DebtPerSF        float64 `json:"debt_per_sf"`
	EquityPerSF      float64 `json:"equity_per_sf"`
	MortgageConstant float64 `json:"mortgage_constant"`
	SinkingFund      float64 `json:"sinking_fund"`
}
