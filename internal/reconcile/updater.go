package reconcile

import "github.com/cantiere-erp/cantiere-erp/internal/planning"

// ApplyCostUpdates writes each mapped summary's final amount into a copy of
// the plan and recomputes the dependent aggregates. The caller's value is
// never mutated; persistence of the returned snapshot is the caller's job, so
// the plan is either fully updated or untouched. The returned count is the
// number of summaries that hit a mapped field.
func ApplyCostUpdates(plan planning.PlanSnapshot, summaries []CategoryCostSummary) (planning.PlanSnapshot, int) {
	updated := plan.Clone()
	applied := 0
	for _, summary := range summaries {
		mapping, ok := LookupMapping(summary.Category)
		if !ok {
			continue
		}
		mapping.Apply(&updated.Costs, summary.FinalAmount)
		applied++
	}
	recomputeTotals(&updated.Costs)
	return updated, applied
}

func recomputeTotals(costs *planning.CostConfig) {
	c := costs.Construction
	costs.Construction.Total = round2(c.Excavation + c.Structure + c.Systems + c.Finishes + c.External)
	s := costs.SoftCosts
	costs.SoftCosts.Total = round2(s.Design + s.Permits + s.Marketing + s.Legal)
}
