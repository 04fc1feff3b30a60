package procurement

import (
	"context"
	"errors"
	"time"
)

// ApprovalStatus enumerates billing and variation approval states.
type ApprovalStatus string

const (
	// StatusPending indicates awaiting approval; excluded from actuals.
	StatusPending ApprovalStatus = "PENDING"
	// StatusApproved indicates the document contributes to actuals.
	StatusApproved ApprovalStatus = "APPROVED"
)

// LineItem is a budgeted cost item belonging to a project.
type LineItem struct {
	ID          string
	ProjectID   string
	Category    string
	Description string
	BudgetPrice float64
}

// ContractItem carries the awarded price for one line item.
type ContractItem struct {
	ItemID     string
	TotalPrice float64
}

// Contract records awarded prices per line item.
type Contract struct {
	ID        string
	ProjectID string
	Number    string
	Supplier  string
	Items     []ContractItem
	UpdatedAt time.Time
}

// ProgressBilling is a periodic claim for work completed against a contracted item.
type ProgressBilling struct {
	ID        string
	ItemID    string
	Amount    float64
	Status    ApprovalStatus
	UpdatedAt time.Time
}

// Variation is a change order adjusting a contracted item's cost. Amount may be
// negative.
type Variation struct {
	ID        string
	ItemID    string
	Amount    float64
	Status    ApprovalStatus
	UpdatedAt time.Time
}

// LineItemStore reads project budget items.
type LineItemStore interface {
	ListLineItems(ctx context.Context, projectID string) ([]LineItem, error)
}

// ContractStore reads awarded contracts.
type ContractStore interface {
	ListContracts(ctx context.Context, projectID string) ([]Contract, error)
}

// BillingStore reads progress billings for a project's items.
type BillingStore interface {
	ListBillings(ctx context.Context, projectID string) ([]ProgressBilling, error)
}

// VariationStore reads change orders for a project's items.
type VariationStore interface {
	ListVariations(ctx context.Context, projectID string) ([]Variation, error)
}

// ActivityStore reports the most recent contract-data mutation for a project,
// used by the staleness check.
type ActivityStore interface {
	LatestContractActivity(ctx context.Context, projectID string) (time.Time, error)
}

// ErrProjectNotFound occurs when a project has no procurement records at all.
var ErrProjectNotFound = errors.New("procurement: project not found")
