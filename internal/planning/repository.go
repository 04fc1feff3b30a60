package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cantiere-erp/cantiere-erp/internal/shared"
)

// Repository persists plan snapshots in PostgreSQL. The plan body is stored as
// a JSONB payload next to an integer version column used for optimistic
// concurrency.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPlan loads the current snapshot.
func (r *Repository) GetPlan(ctx context.Context, planID string) (PlanSnapshot, error) {
	var (
		payload   []byte
		version   int64
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT payload, version, updated_at
		FROM business_plans
		WHERE id = $1`, planID).Scan(&payload, &version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanSnapshot{}, ErrPlanNotFound
		}
		return PlanSnapshot{}, fmt.Errorf("planning: get plan: %w", err)
	}
	var plan PlanSnapshot
	if err := json.Unmarshal(payload, &plan); err != nil {
		return PlanSnapshot{}, fmt.Errorf("planning: decode plan %s: %w", planID, err)
	}
	plan.ID = planID
	plan.Version = version
	plan.UpdatedAt = updatedAt
	return plan, nil
}

// SavePlan writes the snapshot with a compare-and-swap on the version column.
func (r *Repository) SavePlan(ctx context.Context, plan PlanSnapshot) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("planning: encode plan %s: %w", plan.ID, err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE business_plans
		SET payload = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3`, plan.ID, payload, plan.Version)
	if err != nil {
		return fmt.Errorf("planning: save plan %s: %w", plan.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the plan vanished or another writer bumped the version.
		if _, getErr := r.GetPlan(ctx, plan.ID); errors.Is(getErr, ErrPlanNotFound) {
			return ErrPlanNotFound
		}
		return shared.ErrVersionConflict
	}
	return nil
}

// ListActivePlans enumerates plans eligible for the scheduled refresh.
func (r *Repository) ListActivePlans(ctx context.Context) ([]PlanRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id
		FROM business_plans
		WHERE active
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []PlanRef
	for rows.Next() {
		var ref PlanRef
		if err := rows.Scan(&ref.PlanID, &ref.ProjectID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
