package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPlanRefresh runs the reconciliation pipeline for one plan.
	TaskPlanRefresh = "reconcile:refresh"
	// TaskPlanRefreshSweep enqueues a refresh for every active plan.
	TaskPlanRefreshSweep = "reconcile:refresh_sweep"
)

// PlanRefreshPayload identifies the plan to reconcile.
type PlanRefreshPayload struct {
	ProjectID string `json:"project_id"`
	PlanID    string `json:"plan_id"`
	Force     bool   `json:"force"`
}

// NewPlanRefreshTask constructs an Asynq task for one plan.
func NewPlanRefreshTask(payload PlanRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPlanRefresh, data), nil
}

// NewPlanRefreshSweepTask constructs the periodic sweep task.
func NewPlanRefreshSweepTask() *asynq.Task {
	return asynq.NewTask(TaskPlanRefreshSweep, nil)
}
