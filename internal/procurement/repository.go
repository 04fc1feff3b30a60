package procurement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads over the procurement stores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLineItems returns all budget items for a project.
func (r *Repository) ListLineItems(ctx context.Context, projectID string) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, category, description, budget_price
		FROM line_items
		WHERE project_id = $1
		ORDER BY category, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Category, &item.Description, &item.BudgetPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListContracts returns contracts with their item prices for a project.
func (r *Repository) ListContracts(ctx context.Context, projectID string) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.project_id, c.number, c.supplier, c.updated_at, ci.item_id, ci.total_price
		FROM contracts c
		JOIN contract_items ci ON ci.contract_id = c.id
		WHERE c.project_id = $1
		ORDER BY c.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]*Contract)
	var order []string
	for rows.Next() {
		var (
			header Contract
			item   ContractItem
		)
		if err := rows.Scan(&header.ID, &header.ProjectID, &header.Number, &header.Supplier, &header.UpdatedAt, &item.ItemID, &item.TotalPrice); err != nil {
			return nil, err
		}
		existing, ok := byID[header.ID]
		if !ok {
			existing = &header
			byID[header.ID] = existing
			order = append(order, header.ID)
		}
		existing.Items = append(existing.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	contracts := make([]Contract, 0, len(order))
	for _, id := range order {
		contracts = append(contracts, *byID[id])
	}
	return contracts, nil
}

// ListBillings returns progress billings referencing the project's items.
func (r *Repository) ListBillings(ctx context.Context, projectID string) ([]ProgressBilling, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.item_id, b.amount, b.status, b.updated_at
		FROM progress_billings b
		JOIN line_items li ON li.id = b.item_id
		WHERE li.project_id = $1
		ORDER BY b.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var billings []ProgressBilling
	for rows.Next() {
		var b ProgressBilling
		if err := rows.Scan(&b.ID, &b.ItemID, &b.Amount, &b.Status, &b.UpdatedAt); err != nil {
			return nil, err
		}
		billings = append(billings, b)
	}
	return billings, rows.Err()
}

// ListVariations returns change orders referencing the project's items.
func (r *Repository) ListVariations(ctx context.Context, projectID string) ([]Variation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id, v.item_id, v.amount, v.status, v.updated_at
		FROM variations v
		JOIN line_items li ON li.id = v.item_id
		WHERE li.project_id = $1
		ORDER BY v.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var variations []Variation
	for rows.Next() {
		var v Variation
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Amount, &v.Status, &v.UpdatedAt); err != nil {
			return nil, err
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}

// LatestContractActivity returns the newest updated_at across contracts,
// billings and variations for a project. Zero time when nothing exists.
func (r *Repository) LatestContractActivity(ctx context.Context, projectID string) (time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT GREATEST(
			(SELECT MAX(updated_at) FROM contracts WHERE project_id = $1),
			(SELECT MAX(b.updated_at) FROM progress_billings b JOIN line_items li ON li.id = b.item_id WHERE li.project_id = $1),
			(SELECT MAX(v.updated_at) FROM variations v JOIN line_items li ON li.id = v.item_id WHERE li.project_id = $1)
		)`, projectID).Scan(&latest)
	if err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
