package finmodel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

func fixturePlan() planning.PlanSnapshot {
	return planning.PlanSnapshot{
		ID:        "bp-1",
		ProjectID: "prj-1",
		Revenue:   planning.RevenueConfig{Method: planning.RevenueUnitPricing, Units: 10, AveragePrice: 300000},
		Costs: planning.CostConfig{
			Construction: planning.ConstructionBreakdown{
				Excavation: 100000,
				Structure:  450000,
				Systems:    220000,
				Finishes:   300000,
				External:   50000,
				Total:      1120000,
			},
			ContingencyPct: 10,
			SoftCosts:      planning.SoftCosts{Design: 80000, Permits: 40000, Marketing: 60000, Legal: 20000, Total: 200000},
		},
		Finance: planning.FinanceConfig{
			DiscountRatePct: 8,
			Debt:            planning.DebtTerms{Enabled: true, Amount: 1000000, InterestRatePct: 5},
		},
		Land: []planning.LandScenario{
			{Name: "cash purchase", PaymentType: planning.LandPaymentCash, UpfrontPayment: 500000},
			{Name: "unit swap", PaymentType: planning.LandPaymentSwap, UpfrontPayment: 650000},
		},
	}
}

func TestSimpleModelCompute(t *testing.T) {
	model := NewSimpleModel()
	metrics := model.Compute(fixturePlan())

	// 10 units x 300k.
	require.InDelta(t, 3000000, metrics.TotalRevenue, 0.01)
	// land 500k (swap scenario excluded) + construction 1.12m + soft 200k + 10% contingency 112k.
	require.InDelta(t, 1932000, metrics.TotalCosts, 0.01)
	require.InDelta(t, 1068000, metrics.Margin, 0.01)
	require.InDelta(t, 35.6, metrics.MarginPct, 0.01)
	require.InDelta(t, 1068000/1.08, metrics.NPV, 0.01)
	require.InDelta(t, 15, metrics.IRR, 0.01)
	// debt service = 1m x 5% = 50k.
	require.InDelta(t, 1068000/50000.0, metrics.DSCR, 0.01)
	require.InDelta(t, 1932000/1068000.0, metrics.PaybackPeriod, 0.01)
}

func TestSimpleModelNonUnitRevenueYieldsZero(t *testing.T) {
	plan := fixturePlan()
	plan.Revenue.Method = planning.RevenueRentRoll

	metrics := NewSimpleModel().Compute(plan)

	require.Zero(t, metrics.TotalRevenue)
	require.Zero(t, metrics.MarginPct)
	require.Zero(t, metrics.PaybackPeriod)
	require.InDelta(t, 0, metrics.IRR, 0.01)
	require.Negative(t, metrics.Margin)
}

func TestSimpleModelDebtDisabled(t *testing.T) {
	plan := fixturePlan()
	plan.Finance.Debt.Enabled = false

	metrics := NewSimpleModel().Compute(plan)

	require.Zero(t, metrics.DSCR)
}

func TestValidateFlagsThinMargin(t *testing.T) {
	plan := fixturePlan()
	th := DefaultThresholds()

	report := Validate(plan, Metrics{MarginPct: 4, DSCR: 2, NPV: 100}, th)
	require.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)

	report = Validate(plan, Metrics{MarginPct: 8, DSCR: 2, NPV: 100}, th)
	require.True(t, report.IsValid)
	require.Len(t, report.Warnings, 1)
}

func TestValidateFlagsDSCRAndNPV(t *testing.T) {
	plan := fixturePlan()
	report := Validate(plan, Metrics{MarginPct: 30, DSCR: 1.1, NPV: -500}, DefaultThresholds())

	require.False(t, report.IsValid)
	require.Contains(t, report.Errors[0], "DSCR")
	require.Contains(t, report.Warnings[0], "NPV")

	plan.Finance.Debt.Enabled = false
	report = Validate(plan, Metrics{MarginPct: 30, DSCR: 0, NPV: 100}, DefaultThresholds())
	require.True(t, report.IsValid)
	require.Empty(t, report.Warnings)
}
