// internal/leasecalc/irr.go
package leasecalc

import "math"

const (
	irrLow        = -0.99
	irrHigh       = 1.0
	irrIterations = 200
	irrTolerance  = 1e-12
)

// ComputeIRR returns the periodic internal rate of return of cashFlows, where
// cashFlows[i] occurs at the end of period i (period 0 is inception). ok is
// false when the flows have no sign change or no root lies in the search range.
func ComputeIRR(cashFlows []float64) (rate float64, ok bool) {
	if !hasSignChange(cashFlows) {
		return 0, false
	}
	lo, hi := irrLow, irrHigh
	fLo := netPresentValue(cashFlows, lo)
	fHi := netPresentValue(cashFlows, hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return 0, false
	}
	for i := 0; i < irrIterations; i++ {
		mid := (lo + hi) / 2
		fMid := netPresentValue(cashFlows, mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if fMid*fLo > 0 {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}

func netPresentValue(cashFlows []float64, rate float64) float64 {
	var sum float64
	for i, cf := range cashFlows {
		if cf == 0 {
			continue
		}
		sum += cf / math.Pow(1+rate, float64(i))
	}
	return sum
}

func hasSignChange(cashFlows []float64) bool {
	var pos, neg bool
	for _, cf := range cashFlows {
		if cf > 0 {
			pos = true
		} else if cf < 0 {
			neg = true
		}
	}
	return pos && neg
}

// monthlyNetFlows lays the deal's net rent out month by month with costs at
// inception, for IRR purposes.
func monthlyNetFlows(d Deal) []float64 {
	n := d.Schedule.TotalMonths()
	flows := make([]float64, n+1)
	shift := 0
	if d.Convention.Timing == TimingArrears {
		shift = 1
	}
	month := 0
	for _, p := range d.Schedule {
		for i := 0; i < p.Months; i++ {
			flows[month+shift] += d.netRent(p, month) / 12
			month++
		}
	}
	flows[0] -= d.Costs.Total()
	return flows
}
