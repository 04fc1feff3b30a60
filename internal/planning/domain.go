package planning

import (
	"context"
	"errors"
	"time"
)

// RevenueMethod enumerates how plan revenue is modelled.
type RevenueMethod string

const (
	// RevenueUnitPricing sells a fixed unit count at an average price.
	RevenueUnitPricing RevenueMethod = "UNIT_PRICING"
	// RevenueRentRoll models rental income; not yet supported by the
	// simplified financial model and yields zero revenue.
	RevenueRentRoll RevenueMethod = "RENT_ROLL"
)

// LandPaymentType enumerates land acquisition payment structures.
type LandPaymentType string

const (
	// LandPaymentCash pays the land upfront in cash.
	LandPaymentCash LandPaymentType = "CASH"
	// LandPaymentSwap settles via unit swap; no upfront cash flow.
	LandPaymentSwap LandPaymentType = "SWAP"
)

// RevenueConfig models plan revenue assumptions.
type RevenueConfig struct {
	Method       RevenueMethod `json:"method"`
	Units        int           `json:"units"`
	AveragePrice float64       `json:"average_price"`
}

// ConstructionBreakdown itemises hard costs by sub-category.
type ConstructionBreakdown struct {
	Excavation float64 `json:"excavation"`
	Structure  float64 `json:"structure"`
	Systems    float64 `json:"systems"`
	Finishes   float64 `json:"finishes"`
	External   float64 `json:"external"`
	Total      float64 `json:"total"`
}

// SoftCosts itemises non-construction costs.
type SoftCosts struct {
	Design    float64 `json:"design"`
	Permits   float64 `json:"permits"`
	Marketing float64 `json:"marketing"`
	Legal     float64 `json:"legal"`
	Total     float64 `json:"total"`
}

// CostConfig groups all plan cost assumptions.
type CostConfig struct {
	Construction   ConstructionBreakdown `json:"construction"`
	ContingencyPct float64               `json:"contingency_pct"`
	SoftCosts      SoftCosts             `json:"soft_costs"`
}

// DebtTerms describes optional project debt.
type DebtTerms struct {
	Enabled         bool    `json:"enabled"`
	Amount          float64 `json:"amount"`
	InterestRatePct float64 `json:"interest_rate_pct"`
}

// FinanceConfig groups financing assumptions.
type FinanceConfig struct {
	DiscountRatePct float64   `json:"discount_rate_pct"`
	Debt            DebtTerms `json:"debt"`
}

// LandScenario describes one land acquisition option.
type LandScenario struct {
	Name           string          `json:"name"`
	PaymentType    LandPaymentType `json:"payment_type"`
	UpfrontPayment float64         `json:"upfront_payment"`
}

// Targets carries plan-level goal thresholds.
type Targets struct {
	MarginPct float64 `json:"margin_pct"`
	MinDSCR   float64 `json:"min_dscr"`
}

// PlanSnapshot is one immutable version of a project's financial plan.
type PlanSnapshot struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Name      string        `json:"name"`
	Revenue   RevenueConfig `json:"revenue"`
	Costs     CostConfig    `json:"costs"`
	Finance   FinanceConfig `json:"finance"`
	Land      []LandScenario `json:"land"`
	Targets   Targets       `json:"targets"`
	Version   int64         `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so transforms never mutate the caller's value.
func (p PlanSnapshot) Clone() PlanSnapshot {
	out := p
	out.Land = append([]LandScenario(nil), p.Land...)
	return out
}

// PlanRef identifies a plan and its project, used by scheduled refreshes.
type PlanRef struct {
	PlanID    string
	ProjectID string
}

// Store reads and writes plan snapshots.
type Store interface {
	GetPlan(ctx context.Context, planID string) (PlanSnapshot, error)
	// SavePlan persists the snapshot when the stored version still matches
	// plan.Version, bumping the version. shared.ErrVersionConflict otherwise.
	SavePlan(ctx context.Context, plan PlanSnapshot) error
	ListActivePlans(ctx context.Context) ([]PlanRef, error)
}

// ErrPlanNotFound occurs when no snapshot exists for the id.
var ErrPlanNotFound = errors.New("planning: plan not found")
