package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/jobs"
)

// RefreshJob processes plan refresh tasks.
type RefreshJob struct {
	service *Service
	plans   planning.Store
	client  *jobs.Client
	logger  *slog.Logger
}

// NewRefreshJob constructs a job handler.
func NewRefreshJob(service *Service, plans planning.Store, client *jobs.Client, logger *slog.Logger) *RefreshJob {
	return &RefreshJob{service: service, plans: plans, client: client, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract for single-plan refreshes.
// The staleness check inside Refresh makes re-delivery harmless.
func (j *RefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.PlanRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ProjectID == "" || payload.PlanID == "" {
		return asynq.SkipRetry
	}
	result := j.service.Refresh(ctx, payload.ProjectID, payload.PlanID, payload.Force)
	if !result.Success {
		if j.logger != nil {
			j.logger.Error("scheduled refresh", slog.String("plan_id", payload.PlanID), slog.String("error", result.Error))
		}
		return errors.New(result.Error)
	}
	return nil
}

// HandleSweep enqueues a refresh task for every active plan.
func (j *RefreshJob) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	refs, err := j.plans.ListActivePlans(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		payload := jobs.PlanRefreshPayload{ProjectID: ref.ProjectID, PlanID: ref.PlanID}
		if _, err := j.client.EnqueuePlanRefresh(ctx, payload); err != nil {
			if j.logger != nil {
				j.logger.Warn("enqueue refresh", slog.String("plan_id", ref.PlanID), slog.Any("error", err))
			}
		}
	}
	return nil
}
