// internal/models/analysis.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cre-workers/internal/leasecalc"
)

// moneyPlaces is the rounding applied to every currency figure in output.
const moneyPlaces = 4

// AnalysisDocument is the output JSON document. Currency values are per SF.
type AnalysisDocument struct {
	AnalysisID   string               `json:"analysis_id"`
	DealName     string               `json:"deal_name"`
	PropertyName string               `json:"property_name,omitempty"`
	AreaSF       float64              `json:"area_sf"`
	TermMonths   int                  `json:"term_months"`
	DiscountRate float64              `json:"discount_rate"`
	Convention   leasecalc.Convention `json:"convention"`

	// NPVRent is the present value of the landlord's net rent receipts after
	// free-rent abatement. On a gross basis opex is already deducted, so the
	// figure is comparable across bases; NPVOpex is reported separately.
	NPVRent  float64 `json:"npv_rent"`
	NPVOpex  float64 `json:"npv_opex"`
	NPVCosts float64 `json:"npv_costs"`

	NER              float64 `json:"ner"`
	GER              float64 `json:"ger"`
	NERWithFixturing float64 `json:"ner_with_fixturing"`
	GERWithFixturing float64 `json:"ger_with_fixturing"`

	CostsPerSF CostBreakdown `json:"costs_per_sf"`

	LeaseIRR        *float64           `json:"lease_irr,omitempty"`
	Breakeven       map[string]float64 `json:"breakeven,omitempty"`
	BreakevenMargin map[string]float64 `json:"breakeven_margin,omitempty"`

	OmittedInputs []string  `json:"omitted_inputs"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type CostBreakdown struct {
	TIAllowance        float64 `json:"ti_allowance"`
	LandlordWork       float64 `json:"landlord_work"`
	LeasingCommissions float64 `json:"leasing_commissions"`
	FreeRentValue      float64 `json:"free_rent_value"`
	LegalFees          float64 `json:"legal_fees"`
	Total              float64 `json:"total"`
}

// NewAnalysisDocument assembles the output for one successful analysis.
func NewAnalysisDocument(doc *DealDocument, deal leasecalc.Deal, res *leasecalc.AnalysisResult, omitted []string) *AnalysisDocument {
	if omitted == nil {
		omitted = []string{}
	}
	out := &AnalysisDocument{
		AnalysisID:   uuid.NewString(),
		DealName:     doc.DealName,
		PropertyName: doc.Property.Name,
		AreaSF:       doc.Property.AreaSF,
		TermMonths:   deal.TermMonths,
		DiscountRate: deal.DiscountRate,
		Convention:   res.Convention,

		NPVRent:  Round(res.NPVRent),
		NPVOpex:  Round(res.NPVOpex),
		NPVCosts: Round(res.NPVCosts),

		NER:              Round(res.NER),
		GER:              Round(res.GER),
		NERWithFixturing: Round(res.NERWithFixturing),
		GERWithFixturing: Round(res.GERWithFixturing),

		CostsPerSF: CostBreakdown{
			TIAllowance:        Round(deal.Costs.TIAllowance),
			LandlordWork:       Round(deal.Costs.LandlordWork),
			LeasingCommissions: Round(deal.Costs.LeasingCommissions),
			FreeRentValue:      Round(deal.Costs.FreeRentValue),
			LegalFees:          Round(deal.Costs.LegalFees),
			Total:              Round(deal.Costs.Total()),
		},

		OmittedInputs: omitted,
		GeneratedAt:   time.Now().UTC(),
	}

	if res.LeaseIRR != nil {
		irr := RoundPlaces(*res.LeaseIRR, 6)
		out.LeaseIRR = &irr
	}
	if res.Breakeven != nil {
		out.Breakeven = roundMap(res.Breakeven.Map())
		out.BreakevenMargin = roundMap(res.BreakevenMargin)
	}
	return out
}

// Round rounds a currency amount half away from zero to four places.
func Round(v float64) float64 {
	return RoundPlaces(v, moneyPlaces)
}

func RoundPlaces(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func roundMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = Round(v)
	}
	return out
}
