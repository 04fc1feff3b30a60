// Package finmodel derives investment metrics from a financial plan snapshot.
package finmodel

import (
	"math"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

// Metrics is the set of top-level investment figures derived from a plan.
type Metrics struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCosts    float64 `json:"total_costs"`
	Margin        float64 `json:"margin"`
	MarginPct     float64 `json:"margin_pct"`
	NPV           float64 `json:"npv"`
	IRR           float64 `json:"irr"`
	DSCR          float64 `json:"dscr"`
	PaybackPeriod float64 `json:"payback_period"`
}

// FinancialModel computes metrics from a plan snapshot. Implementations must
// be pure: same snapshot in, same metrics out.
type FinancialModel interface {
	Compute(plan planning.PlanSnapshot) Metrics
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
