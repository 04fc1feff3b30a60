package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cantiere-erp/cantiere-erp/internal/procurement"
)

// Aggregator reads the upstream procurement stores and produces one cost
// summary per category.
type Aggregator struct {
	lineItems  procurement.LineItemStore
	contracts  procurement.ContractStore
	billings   procurement.BillingStore
	variations procurement.VariationStore
}

// NewAggregator wires the four upstream stores.
func NewAggregator(items procurement.LineItemStore, contracts procurement.ContractStore, billings procurement.BillingStore, variations procurement.VariationStore) *Aggregator {
	return &Aggregator{lineItems: items, contracts: contracts, billings: billings, variations: variations}
}

// ContractCosts aggregates budget, contracted, billed and variation amounts
// per category. A project with no line items yields an empty slice. Billings
// or variations referencing unknown items contribute nothing; the upstream
// stores perform no referential-integrity check and neither does this pass.
func (a *Aggregator) ContractCosts(ctx context.Context, projectID string) ([]CategoryCostSummary, error) {
	var (
		items      []procurement.LineItem
		contracts  []procurement.Contract
		billings   []procurement.ProgressBilling
		variations []procurement.Variation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = a.lineItems.ListLineItems(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		contracts, err = a.contracts.ListContracts(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		billings, err = a.billings.ListBillings(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		variations, err = a.variations.ListVariations(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconcile: aggregate project %s: %w", projectID, err)
	}
	if len(items) == 0 {
		return []CategoryCostSummary{}, nil
	}

	categoryByItem := make(map[string]string, len(items))
	summaries := make(map[string]*CategoryCostSummary)
	var order []string
	for _, item := range items {
		categoryByItem[item.ID] = item.Category
		s, ok := summaries[item.Category]
		if !ok {
			s = &CategoryCostSummary{Category: item.Category}
			summaries[item.Category] = s
			order = append(order, item.Category)
		}
		s.BudgetAmount += item.BudgetPrice
	}

	for _, contract := range contracts {
		for _, ci := range contract.Items {
			if category, ok := categoryByItem[ci.ItemID]; ok {
				summaries[category].ContractAmount += ci.TotalPrice
			}
		}
	}
	for _, billing := range billings {
		if billing.Status != procurement.StatusApproved {
			continue
		}
		if category, ok := categoryByItem[billing.ItemID]; ok {
			summaries[category].ActualAmount += billing.Amount
		}
	}
	for _, variation := range variations {
		if variation.Status != procurement.StatusApproved {
			continue
		}
		if category, ok := categoryByItem[variation.ItemID]; ok {
			summaries[category].VariationAmount += variation.Amount
		}
	}

	sort.Strings(order)
	out := make([]CategoryCostSummary, 0, len(order))
	for _, category := range order {
		s := summaries[category]
		s.FinalAmount = s.ContractAmount + s.VariationAmount
		if s.ContractAmount > 0 {
			s.DriftPct = round2((s.FinalAmount - s.ContractAmount) / s.ContractAmount * 100)
		}
		s.BudgetAmount = round2(s.BudgetAmount)
		s.ContractAmount = round2(s.ContractAmount)
		s.ActualAmount = round2(s.ActualAmount)
		s.VariationAmount = round2(s.VariationAmount)
		s.FinalAmount = round2(s.FinalAmount)
		out = append(out, *s)
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
