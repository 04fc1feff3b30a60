package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cantiere-erp/cantiere-erp/internal/platform/db"
)

// retainedEntriesPerPlan bounds the update log; snapshots are heavy and old
// entries beyond this depth are no longer useful rollback targets.
const retainedEntriesPerPlan = 500

// Repository persists the append-only plan_update_log. Metrics and the
// pre-update plan snapshot are stored as JSONB so rollback can restore the
// exact state without reconstructing it from diffs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendUpdate inserts one audit record and prunes entries past the retention
// depth in the same transaction.
func (r *Repository) AppendUpdate(ctx context.Context, entry UpdateLogEntry) error {
	beforeJSON, err := json.Marshal(entry.BeforeMetrics)
	if err != nil {
		return err
	}
	afterJSON, err := json.Marshal(entry.AfterMetrics)
	if err != nil {
		return err
	}
	planJSON, err := json.Marshal(entry.PlanBefore)
	if err != nil {
		return err
	}
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO plan_update_log (id, plan_id, project_id, occurred_at, impact_level, margin_delta, updated_categories, before_metrics, after_metrics, plan_before)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			entry.ID, entry.PlanID, entry.ProjectID, entry.Timestamp, string(entry.ImpactLevel),
			entry.MarginDelta, entry.UpdatedCategories, beforeJSON, afterJSON, planJSON); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM plan_update_log
			WHERE plan_id = $1 AND id NOT IN (
				SELECT id FROM plan_update_log
				WHERE plan_id = $1
				ORDER BY occurred_at DESC
				LIMIT $2
			)`, entry.PlanID, retainedEntriesPerPlan)
		return err
	})
	if err != nil {
		return fmt.Errorf("reconcile: append update log: %w", err)
	}
	return nil
}

// ListUpdates returns all entries for a plan, most recent first.
func (r *Repository) ListUpdates(ctx context.Context, planID string) ([]UpdateLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, plan_id, project_id, occurred_at, impact_level, margin_delta, updated_categories, before_metrics, after_metrics, plan_before
		FROM plan_update_log
		WHERE plan_id = $1
		ORDER BY occurred_at DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []UpdateLogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LatestUpdate returns the newest entry timestamp for the plan.
func (r *Repository) LatestUpdate(ctx context.Context, planID string) (time.Time, bool, error) {
	var ts time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT occurred_at FROM plan_update_log
		WHERE plan_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1`, planID).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// UpdateAt fetches the entry recorded at the exact timestamp.
func (r *Repository) UpdateAt(ctx context.Context, planID string, ts time.Time) (UpdateLogEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, plan_id, project_id, occurred_at, impact_level, margin_delta, updated_categories, before_metrics, after_metrics, plan_before
		FROM plan_update_log
		WHERE plan_id = $1 AND occurred_at = $2`, planID, ts)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpdateLogEntry{}, ErrEntryNotFound
		}
		return UpdateLogEntry{}, err
	}
	return entry, nil
}

func scanEntry(row pgx.Row) (UpdateLogEntry, error) {
	var (
		entry      UpdateLogEntry
		level      string
		beforeJSON []byte
		afterJSON  []byte
		planJSON   []byte
	)
	if err := row.Scan(&entry.ID, &entry.PlanID, &entry.ProjectID, &entry.Timestamp, &level,
		&entry.MarginDelta, &entry.UpdatedCategories, &beforeJSON, &afterJSON, &planJSON); err != nil {
		return UpdateLogEntry{}, err
	}
	entry.ImpactLevel = ImpactLevel(level)
	if err := json.Unmarshal(beforeJSON, &entry.BeforeMetrics); err != nil {
		return UpdateLogEntry{}, fmt.Errorf("reconcile: decode before metrics: %w", err)
	}
	if err := json.Unmarshal(afterJSON, &entry.AfterMetrics); err != nil {
		return UpdateLogEntry{}, fmt.Errorf("reconcile: decode after metrics: %w", err)
	}
	if err := json.Unmarshal(planJSON, &entry.PlanBefore); err != nil {
		return UpdateLogEntry{}, fmt.Errorf("reconcile: decode plan snapshot: %w", err)
	}
	return entry, nil
}
