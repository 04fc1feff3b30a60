// Package reconcile aggregates procurement cost facts, maps them onto the
// financial plan and recomputes investment metrics whenever contracted, billed
// or change-order costs drift from the original budget.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

// CategoryCostSummary is the per-category outcome of one aggregation run.
// FinalAmount is always ContractAmount + VariationAmount; only approved
// billings and variations contribute to actuals.
type CategoryCostSummary struct {
	Category        string  `json:"category"`
	BudgetAmount    float64 `json:"budget_amount"`
	ContractAmount  float64 `json:"contract_amount"`
	ActualAmount    float64 `json:"actual_amount"`
	VariationAmount float64 `json:"variation_amount"`
	FinalAmount     float64 `json:"final_amount"`
	DriftPct        float64 `json:"drift_pct"`
}

// SyncResult is the full output of one reconciliation run.
type SyncResult struct {
	ProjectID      string                `json:"project_id"`
	PlanID         string                `json:"plan_id"`
	BeforeMetrics  finmodel.Metrics      `json:"before_metrics"`
	AfterMetrics   finmodel.Metrics      `json:"after_metrics"`
	CostUpdates    []CategoryCostSummary `json:"cost_updates"`
	ImpactAnalysis ImpactAnalysis        `json:"impact_analysis"`
	Timestamp      time.Time             `json:"timestamp"`
}

// RefreshResult wraps a refresh outcome. A skipped refresh reports
// Success=true with a nil Result, distinguishable from a completed sync.
type RefreshResult struct {
	Success   bool        `json:"success"`
	Result    *SyncResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ImpactPreview carries the headline figures of a dry run.
type ImpactPreview struct {
	CostChange      float64  `json:"cost_change"`
	MarginImpact    float64  `json:"margin_impact"`
	Recommendations []string `json:"recommendations"`
}

// UpdateLogEntry is one append-only audit record of a completed sync. The
// pre-update plan snapshot is stored whole so rollback restores it exactly.
type UpdateLogEntry struct {
	ID                string                `json:"id"`
	PlanID            string                `json:"plan_id"`
	ProjectID         string                `json:"project_id"`
	Timestamp         time.Time             `json:"timestamp"`
	ImpactLevel       ImpactLevel           `json:"impact_level"`
	MarginDelta       float64               `json:"margin_delta"`
	UpdatedCategories int                   `json:"updated_categories"`
	BeforeMetrics     finmodel.Metrics      `json:"before_metrics"`
	AfterMetrics      finmodel.Metrics      `json:"after_metrics"`
	PlanBefore        planning.PlanSnapshot `json:"plan_before"`
}

// RepositoryPort persists the audit trail of plan updates.
type RepositoryPort interface {
	AppendUpdate(ctx context.Context, entry UpdateLogEntry) error
	ListUpdates(ctx context.Context, planID string) ([]UpdateLogEntry, error)
	// LatestUpdate returns the newest entry timestamp; ok=false when the plan
	// has never been updated.
	LatestUpdate(ctx context.Context, planID string) (time.Time, bool, error)
	UpdateAt(ctx context.Context, planID string, ts time.Time) (UpdateLogEntry, error)
}

var (
	// ErrValidation indicates missing project or plan identifiers.
	ErrValidation = errors.New("reconcile: project and plan identifiers required")
	// ErrEntryNotFound occurs when no audit entry matches the timestamp.
	ErrEntryNotFound = errors.New("reconcile: update log entry not found")
)
