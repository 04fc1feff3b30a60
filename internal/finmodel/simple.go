package finmodel

import (
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

// SimpleModel implements the single-period financial model used by the
// reconciliation pipeline. NPV discounts one net cash flow, IRR is a two-level
// heuristic and payback assumes a constant flow. A multi-period DCF model can
// replace it behind the FinancialModel interface without touching the pipeline.
type SimpleModel struct {
	// IRRPositive is reported when the net cash flow is positive.
	IRRPositive float64
	// IRRNegative is reported otherwise.
	IRRNegative float64
}

// NewSimpleModel returns the model with default IRR heuristics.
func NewSimpleModel() SimpleModel {
	return SimpleModel{IRRPositive: 15, IRRNegative: 0}
}

// Compute derives all metrics from the snapshot.
func (m SimpleModel) Compute(plan planning.PlanSnapshot) Metrics {
	revenue := totalRevenue(plan.Revenue)
	costs := totalCosts(plan)
	net := revenue - costs

	metrics := Metrics{
		TotalRevenue: round2(revenue),
		TotalCosts:   round2(costs),
		Margin:       round2(net),
	}
	if revenue > 0 {
		metrics.MarginPct = round2(net / revenue * 100)
	}
	metrics.NPV = round2(net / (1 + plan.Finance.DiscountRatePct/100))
	if net > 0 {
		metrics.IRR = m.IRRPositive
	} else {
		metrics.IRR = m.IRRNegative
	}
	if plan.Finance.Debt.Enabled {
		service := plan.Finance.Debt.Amount * plan.Finance.Debt.InterestRatePct / 100
		if service > 0 {
			metrics.DSCR = round2(net / service)
		}
	}
	if net > 0 {
		metrics.PaybackPeriod = round2(costs / net)
	}
	return metrics
}

func totalRevenue(cfg planning.RevenueConfig) float64 {
	// Only per-unit pricing is modelled; other methods yield zero until the
	// model grows multi-period support.
	if cfg.Method != planning.RevenueUnitPricing {
		return 0
	}
	return float64(cfg.Units) * cfg.AveragePrice
}

func totalCosts(plan planning.PlanSnapshot) float64 {
	var land float64
	for _, scenario := range plan.Land {
		if scenario.PaymentType == planning.LandPaymentCash {
			land += scenario.UpfrontPayment
		}
	}
	construction := plan.Costs.Construction.Total
	contingency := plan.Costs.ContingencyPct / 100 * construction
	return land + construction + plan.Costs.SoftCosts.Total + contingency
}
