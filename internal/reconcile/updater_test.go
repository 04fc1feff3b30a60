package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

func TestApplyCostUpdatesRecomputesAggregates(t *testing.T) {
	plan := planning.PlanSnapshot{
		Costs: planning.CostConfig{
			Construction: planning.ConstructionBreakdown{
				Excavation: 100000, Structure: 400000, Systems: 220000, Finishes: 300000, External: 50000, Total: 1070000,
			},
			SoftCosts: planning.SoftCosts{Design: 80000, Permits: 40000, Total: 120000},
		},
	}
	summaries := []CategoryCostSummary{
		{Category: "Structures", FinalAmount: 450000},
		{Category: "Design", FinalAmount: 95000},
	}

	updated, applied := ApplyCostUpdates(plan, summaries)

	require.Equal(t, 2, applied)
	require.InDelta(t, 450000, updated.Costs.Construction.Structure, 0.01)
	require.InDelta(t, 1120000, updated.Costs.Construction.Total, 0.01)
	require.InDelta(t, 95000, updated.Costs.SoftCosts.Design, 0.01)
	require.InDelta(t, 135000, updated.Costs.SoftCosts.Total, 0.01)

	// The input plan is untouched.
	require.InDelta(t, 400000, plan.Costs.Construction.Structure, 0.01)
	require.InDelta(t, 1070000, plan.Costs.Construction.Total, 0.01)
}

func TestApplyCostUpdatesUnmappedCategoryPassthrough(t *testing.T) {
	plan := planning.PlanSnapshot{
		Costs: planning.CostConfig{
			Construction: planning.ConstructionBreakdown{Structure: 400000, Total: 400000},
		},
	}
	summaries := []CategoryCostSummary{
		{Category: "Site security", FinalAmount: 25000},
	}

	updated, applied := ApplyCostUpdates(plan, summaries)

	require.Zero(t, applied)
	require.Equal(t, plan.Costs.Construction, updated.Costs.Construction)
}

func TestLookupMappingCoversClosedTable(t *testing.T) {
	for _, category := range []string{"Excavation", "Structures", "Systems", "Finishes", "External works", "Design", "Permits", "Marketing", "Legal"} {
		mapping, ok := LookupMapping(category)
		require.True(t, ok, category)
		require.Equal(t, category, mapping.SourceCategory)
		require.NotEmpty(t, mapping.PlanField)
	}
	_, ok := LookupMapping("Catering")
	require.False(t, ok)
}
