package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/internal/procurement"
	"github.com/cantiere-erp/cantiere-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Observer receives refresh run telemetry.
type Observer interface {
	ObserveRefresh(outcome string, elapsed time.Duration)
}

// ServiceConfig carries optional coordinator dependencies.
type ServiceConfig struct {
	Locker     shared.Locker
	Audit      AuditPort
	Logger     *slog.Logger
	Observer   Observer
	Thresholds finmodel.Thresholds
	LockTTL    time.Duration
}

// Service orchestrates the reconciliation pipeline: aggregate costs, update
// the plan, recompute metrics, analyse impact and maintain the audit trail.
// It is the single error boundary; Refresh never lets an upstream fault
// escape as a panic or raw error.
type Service struct {
	aggregator *Aggregator
	plans      planning.Store
	history    RepositoryPort
	activity   procurement.ActivityStore
	model      finmodel.FinancialModel

	locker     shared.Locker
	audit      AuditPort
	logger     *slog.Logger
	observer   Observer
	thresholds finmodel.Thresholds
	lockTTL    time.Duration
	now        func() time.Time
	preview    singleflight.Group
}

// NewService constructs the coordinator from its ports.
func NewService(aggregator *Aggregator, plans planning.Store, history RepositoryPort, activity procurement.ActivityStore, model finmodel.FinancialModel, cfg ServiceConfig) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Thresholds == (finmodel.Thresholds{}) {
		cfg.Thresholds = finmodel.DefaultThresholds()
	}
	return &Service{
		aggregator: aggregator,
		plans:      plans,
		history:    history,
		activity:   activity,
		model:      model,
		locker:     cfg.Locker,
		audit:      cfg.Audit,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		thresholds: cfg.Thresholds,
		lockTTL:    cfg.LockTTL,
		now:        time.Now,
	}
}

// GetContractCosts aggregates per-category cost summaries for a project.
func (s *Service) GetContractCosts(ctx context.Context, projectID string) ([]CategoryCostSummary, error) {
	return s.aggregator.ContractCosts(ctx, projectID)
}

// NeedsRefresh reports whether upstream contract data is newer than the last
// recorded plan update. A plan with no update history always needs a refresh.
func (s *Service) NeedsRefresh(ctx context.Context, projectID, planID string) (bool, error) {
	lastUpdate, ok, err := s.history.LatestUpdate(ctx, planID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	lastActivity, err := s.activity.LatestContractActivity(ctx, projectID)
	if err != nil {
		return false, err
	}
	return lastActivity.After(lastUpdate), nil
}

// SyncBusinessPlan runs the full pipeline and persists the outcome. It raises
// directly; production flows call it through Refresh, which converts failures
// into a structured result.
func (s *Service) SyncBusinessPlan(ctx context.Context, projectID, planID string) (SyncResult, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return SyncResult{}, err
	}
	summaries, err := s.aggregator.ContractCosts(ctx, projectID)
	if err != nil {
		return SyncResult{}, err
	}

	before := s.model.Compute(plan)
	updated, applied := ApplyCostUpdates(plan, summaries)
	after := s.model.Compute(updated)
	impact := AnalyzeImpact(before, after)
	timestamp := s.now()

	if err := s.plans.SavePlan(ctx, updated); err != nil {
		return SyncResult{}, fmt.Errorf("reconcile: persist plan %s: %w", planID, err)
	}
	entry := UpdateLogEntry{
		ID:                uuid.NewString(),
		PlanID:            planID,
		ProjectID:         projectID,
		Timestamp:         timestamp,
		ImpactLevel:       impact.Level,
		MarginDelta:       impact.MarginChange,
		UpdatedCategories: applied,
		BeforeMetrics:     before,
		AfterMetrics:      after,
		PlanBefore:        plan,
	}
	if err := s.history.AppendUpdate(ctx, entry); err != nil {
		return SyncResult{}, fmt.Errorf("reconcile: append update log for plan %s: %w", planID, err)
	}
	s.recordAudit(ctx, "PLAN_SYNC", planID, map[string]any{
		"project_id":         projectID,
		"impact_level":       string(impact.Level),
		"updated_categories": applied,
	})
	return SyncResult{
		ProjectID:      projectID,
		PlanID:         planID,
		BeforeMetrics:  before,
		AfterMetrics:   after,
		CostUpdates:    summaries,
		ImpactAnalysis: impact,
		Timestamp:      timestamp,
	}, nil
}

// Refresh validates identifiers, serialises per plan, skips when the plan is
// already current and otherwise runs the pipeline. Failure is always a
// structured result, never an escaping error.
func (s *Service) Refresh(ctx context.Context, projectID, planID string, force bool) RefreshResult {
	start := time.Now()
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(planID) == "" {
		return s.failed(start, ErrValidation)
	}

	if s.locker != nil {
		unlock, err := s.locker.Acquire(ctx, shared.PlanLockKey(planID), s.lockTTL)
		if err != nil {
			return s.failed(start, fmt.Errorf("reconcile: lock plan %s: %w", planID, err))
		}
		defer func() {
			if err := unlock.Release(ctx); err != nil && s.logger != nil {
				s.logger.Warn("release plan lock", slog.String("plan_id", planID), slog.Any("error", err))
			}
		}()
	}

	if !force {
		needed, err := s.NeedsRefresh(ctx, projectID, planID)
		if err != nil {
			return s.failed(start, err)
		}
		if !needed {
			s.observe("skipped", start)
			return RefreshResult{Success: true, Timestamp: s.now()}
		}
	}

	result, err := s.SyncBusinessPlan(ctx, projectID, planID)
	if err != nil {
		return s.failed(start, err)
	}
	s.observe("synced", start)
	if s.logger != nil {
		s.logger.Info("plan refreshed",
			slog.String("plan_id", planID),
			slog.String("project_id", projectID),
			slog.String("impact", string(result.ImpactAnalysis.Level)),
			slog.Float64("cost_change", result.ImpactAnalysis.CostChange),
		)
	}
	return RefreshResult{Success: true, Result: &result, Timestamp: result.Timestamp}
}

// CalculatePotentialImpact dry-runs the pipeline and reports the headline
// deltas without persisting the plan or touching the audit trail. Concurrent
// previews for the same project/plan pair share one computation.
func (s *Service) CalculatePotentialImpact(ctx context.Context, projectID, planID string) (ImpactPreview, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(planID) == "" {
		return ImpactPreview{}, ErrValidation
	}
	key := projectID + "|" + planID
	v, err, _ := s.preview.Do(key, func() (any, error) {
		plan, err := s.plans.GetPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		summaries, err := s.aggregator.ContractCosts(ctx, projectID)
		if err != nil {
			return nil, err
		}
		before := s.model.Compute(plan)
		updated, _ := ApplyCostUpdates(plan, summaries)
		impact := AnalyzeImpact(before, s.model.Compute(updated))
		return ImpactPreview{
			CostChange:      impact.CostChange,
			MarginImpact:    impact.MarginChange,
			Recommendations: impact.Recommendations,
		}, nil
	})
	if err != nil {
		return ImpactPreview{}, err
	}
	return v.(ImpactPreview), nil
}

// UpdateHistory returns the audit trail for a plan, most recent first.
func (s *Service) UpdateHistory(ctx context.Context, planID string) ([]UpdateLogEntry, error) {
	return s.history.ListUpdates(ctx, planID)
}

// ValidatePlan loads the plan, recomputes its metrics and checks them against
// the configured thresholds.
func (s *Service) ValidatePlan(ctx context.Context, planID string) (finmodel.ValidationReport, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return finmodel.ValidationReport{}, err
	}
	return finmodel.Validate(plan, s.model.Compute(plan), s.thresholds), nil
}

// Rollback restores the plan snapshot captured in the audit entry at the
// given timestamp. Returns false when no such entry exists.
func (s *Service) Rollback(ctx context.Context, planID string, timestamp time.Time) (bool, error) {
	entry, err := s.history.UpdateAt(ctx, planID, timestamp)
	if err != nil {
		return false, err
	}

	if s.locker != nil {
		unlock, lockErr := s.locker.Acquire(ctx, shared.PlanLockKey(planID), s.lockTTL)
		if lockErr != nil {
			return false, fmt.Errorf("reconcile: lock plan %s: %w", planID, lockErr)
		}
		defer func() {
			_ = unlock.Release(ctx)
		}()
	}

	current, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return false, err
	}
	restored := entry.PlanBefore.Clone()
	restored.ID = planID
	restored.Version = current.Version
	if err := s.plans.SavePlan(ctx, restored); err != nil {
		return false, fmt.Errorf("reconcile: restore plan %s: %w", planID, err)
	}
	s.recordAudit(ctx, "PLAN_ROLLBACK", planID, map[string]any{
		"restored_from": entry.Timestamp,
	})
	return true, nil
}

func (s *Service) failed(start time.Time, err error) RefreshResult {
	s.observe("failed", start)
	if s.logger != nil {
		s.logger.Error("plan refresh failed", slog.Any("error", err))
	}
	return RefreshResult{Success: false, Error: err.Error(), Timestamp: s.now()}
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveRefresh(outcome, time.Since(start))
	}
}

func (s *Service) recordAudit(ctx context.Context, action, planID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "business_plan", EntityID: planID, Meta: meta})
}
