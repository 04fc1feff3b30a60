package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
)

func TestClassifyImpactLevels(t *testing.T) {
	cases := []struct {
		delta float64
		want  ImpactLevel
	}{
		{-21, ImpactCritical},
		{-12, ImpactHigh},
		{-6, ImpactMedium},
		{-2, ImpactLow},
		{25, ImpactCritical},
		{0, ImpactLow},
	}
	for _, tc := range cases {
		before := finmodel.Metrics{MarginPct: 30}
		after := finmodel.Metrics{MarginPct: 30 + tc.delta}
		got := AnalyzeImpact(before, after)
		require.Equal(t, tc.want, got.Level, "delta %.0f", tc.delta)
	}
}

func TestAnalyzeImpactDeltas(t *testing.T) {
	before := finmodel.Metrics{TotalCosts: 1000000, Margin: 500000, MarginPct: 33.33, NPV: 450000, IRR: 15, DSCR: 2.5, PaybackPeriod: 2}
	after := finmodel.Metrics{TotalCosts: 1070000, Margin: 430000, MarginPct: 28.67, NPV: 380000, IRR: 15, DSCR: 2.1, PaybackPeriod: 2.49}

	analysis := AnalyzeImpact(before, after)

	require.InDelta(t, 70000, analysis.CostChange, 0.01)
	require.InDelta(t, -70000, analysis.MarginChange, 0.01)
	require.InDelta(t, -4.66, analysis.MarginPctChange, 0.01)
	require.InDelta(t, -70000, analysis.NPVChange, 0.01)
	require.InDelta(t, -0.4, analysis.DSCRChange, 0.01)
	require.InDelta(t, 0.49, analysis.PaybackChange, 0.01)
	require.Equal(t, ImpactLow, analysis.Level)
}

func TestRecommendationRulesFireIndependently(t *testing.T) {
	// Margin erosion past 5 points plus a negative NPV swing.
	analysis := AnalyzeImpact(
		finmodel.Metrics{MarginPct: 20, NPV: 100000, DSCR: 3},
		finmodel.Metrics{MarginPct: 12, NPV: 60000, DSCR: 3},
	)
	require.Len(t, analysis.Recommendations, 3)
	require.Contains(t, analysis.Recommendations[0], "renegotiate supplier contracts")
	require.Contains(t, analysis.Recommendations[1], "design alternatives")
	require.Contains(t, analysis.Recommendations[2], "financing strategy")

	// DSCR falling under the covenant triggers the debt warning.
	analysis = AnalyzeImpact(
		finmodel.Metrics{MarginPct: 20, NPV: 0, DSCR: 1.3},
		finmodel.Metrics{MarginPct: 19, NPV: 0, DSCR: 1.1},
	)
	require.Len(t, analysis.Recommendations, 1)
	require.Contains(t, analysis.Recommendations[0], "covenant")

	// A DSCR drop that stays above the covenant stays quiet.
	analysis = AnalyzeImpact(
		finmodel.Metrics{MarginPct: 20, NPV: 0, DSCR: 3},
		finmodel.Metrics{MarginPct: 20, NPV: 0, DSCR: 2.5},
	)
	require.Empty(t, analysis.Recommendations)
}
