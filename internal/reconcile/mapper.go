package reconcile

import "github.com/cantiere-erp/cantiere-erp/internal/planning"

// CategoryMapping binds a procurement category to a typed location in the
// plan's cost model. The setter replaces the string-path traversal the rest of
// the system used to do: every mapped field is statically checked.
type CategoryMapping struct {
	SourceCategory string
	PlanField      string
	Description    string
	apply          func(*planning.CostConfig, float64)
}

// Apply writes amount into the mapped cost field.
func (m CategoryMapping) Apply(costs *planning.CostConfig, amount float64) {
	m.apply(costs, amount)
}

var categoryMappings = map[string]CategoryMapping{
	"Excavation": {
		SourceCategory: "Excavation",
		PlanField:      "costs.construction.excavation",
		Description:    "earthworks and site preparation",
		apply:          func(c *planning.CostConfig, v float64) { c.Construction.Excavation = v },
	},
	"Structures": {
		SourceCategory: "Structures",
		PlanField:      "costs.construction.structure",
		Description:    "load-bearing structure",
		apply:          func(c *planning.CostConfig, v float64) { c.Construction.Structure = v },
	},
	"Systems": {
		SourceCategory: "Systems",
		PlanField:      "costs.construction.systems",
		Description:    "mechanical, electrical and plumbing systems",
		apply:          func(c *planning.CostConfig, v float64) { c.Construction.Systems = v },
	},
	"Finishes": {
		SourceCategory: "Finishes",
		PlanField:      "costs.construction.finishes",
		Description:    "interior finishes",
		apply:          func(c *planning.CostConfig, v float64) { c.Construction.Finishes = v },
	},
	"External works": {
		SourceCategory: "External works",
		PlanField:      "costs.construction.external",
		Description:    "external and landscaping works",
		apply:          func(c *planning.CostConfig, v float64) { c.Construction.External = v },
	},
	"Design": {
		SourceCategory: "Design",
		PlanField:      "costs.soft_costs.design",
		Description:    "design and engineering fees",
		apply:          func(c *planning.CostConfig, v float64) { c.SoftCosts.Design = v },
	},
	"Permits": {
		SourceCategory: "Permits",
		PlanField:      "costs.soft_costs.permits",
		Description:    "permits and municipal charges",
		apply:          func(c *planning.CostConfig, v float64) { c.SoftCosts.Permits = v },
	},
	"Marketing": {
		SourceCategory: "Marketing",
		PlanField:      "costs.soft_costs.marketing",
		Description:    "sales and marketing",
		apply:          func(c *planning.CostConfig, v float64) { c.SoftCosts.Marketing = v },
	},
	"Legal": {
		SourceCategory: "Legal",
		PlanField:      "costs.soft_costs.legal",
		Description:    "legal and notary fees",
		apply:          func(c *planning.CostConfig, v float64) { c.SoftCosts.Legal = v },
	},
}

// LookupMapping returns the mapping for a category. Unknown categories return
// ok=false; their summaries are still reported but never written to the plan.
func LookupMapping(category string) (CategoryMapping, bool) {
	m, ok := categoryMappings[category]
	return m, ok
}
