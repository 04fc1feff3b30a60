package reconcilehttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/internal/procurement"
	"github.com/cantiere-erp/cantiere-erp/internal/reconcile"
)

type fakeProcurement struct {
	items      []procurement.LineItem
	contracts  []procurement.Contract
	billings   []procurement.ProgressBilling
	variations []procurement.Variation
	activity   time.Time
}

func (f *fakeProcurement) ListLineItems(ctx context.Context, projectID string) ([]procurement.LineItem, error) {
	return f.items, nil
}

func (f *fakeProcurement) ListContracts(ctx context.Context, projectID string) ([]procurement.Contract, error) {
	return f.contracts, nil
}

func (f *fakeProcurement) ListBillings(ctx context.Context, projectID string) ([]procurement.ProgressBilling, error) {
	return f.billings, nil
}

func (f *fakeProcurement) ListVariations(ctx context.Context, projectID string) ([]procurement.Variation, error) {
	return f.variations, nil
}

func (f *fakeProcurement) LatestContractActivity(ctx context.Context, projectID string) (time.Time, error) {
	return f.activity, nil
}

type fakePlans struct {
	plans map[string]planning.PlanSnapshot
}

func (f *fakePlans) GetPlan(ctx context.Context, planID string) (planning.PlanSnapshot, error) {
	plan, ok := f.plans[planID]
	if !ok {
		return planning.PlanSnapshot{}, planning.ErrPlanNotFound
	}
	return plan.Clone(), nil
}

func (f *fakePlans) SavePlan(ctx context.Context, plan planning.PlanSnapshot) error {
	plan.Version++
	f.plans[plan.ID] = plan.Clone()
	return nil
}

func (f *fakePlans) ListActivePlans(ctx context.Context) ([]planning.PlanRef, error) {
	return nil, nil
}

type fakeHistory struct {
	entries []reconcile.UpdateLogEntry
}

func (f *fakeHistory) AppendUpdate(ctx context.Context, entry reconcile.UpdateLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) ListUpdates(ctx context.Context, planID string) ([]reconcile.UpdateLogEntry, error) {
	return f.entries, nil
}

func (f *fakeHistory) LatestUpdate(ctx context.Context, planID string) (time.Time, bool, error) {
	if len(f.entries) == 0 {
		return time.Time{}, false, nil
	}
	return f.entries[len(f.entries)-1].Timestamp, true, nil
}

func (f *fakeHistory) UpdateAt(ctx context.Context, planID string, ts time.Time) (reconcile.UpdateLogEntry, error) {
	for _, entry := range f.entries {
		if entry.Timestamp.Equal(ts) {
			return entry, nil
		}
	}
	return reconcile.UpdateLogEntry{}, reconcile.ErrEntryNotFound
}

func newTestRouter(t *testing.T) (*chi.Mux, *fakePlans) {
	t.Helper()
	stores := &fakeProcurement{
		items: []procurement.LineItem{
			{ID: "li-1", ProjectID: "prj-1", Category: "Structures", BudgetPrice: 400000},
		},
		contracts: []procurement.Contract{
			{ID: "c-1", ProjectID: "prj-1", Items: []procurement.ContractItem{{ItemID: "li-1", TotalPrice: 450000}}},
		},
		activity: time.Now(),
	}
	plans := &fakePlans{plans: map[string]planning.PlanSnapshot{
		"bp-1": {
			ID:        "bp-1",
			ProjectID: "prj-1",
			Revenue:   planning.RevenueConfig{Method: planning.RevenueUnitPricing, Units: 8, AveragePrice: 350000},
			Costs: planning.CostConfig{
				Construction: planning.ConstructionBreakdown{Structure: 400000, Total: 400000},
			},
			Version: 1,
		},
	}}
	svc := reconcile.NewService(
		reconcile.NewAggregator(stores, stores, stores, stores),
		plans,
		&fakeHistory{},
		stores,
		finmodel.NewSimpleModel(),
		reconcile.ServiceConfig{},
	)
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		NewHandler(nil, svc).MountRoutes(api)
	})
	return r, plans
}

func TestProjectCosts(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/prj-1/costs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Structures"`)
	require.Contains(t, rec.Body.String(), `"final_amount":450000`)
}

func TestRefreshEndpoint(t *testing.T) {
	router, plans := newTestRouter(t)
	body := strings.NewReader(`{"project_id":"prj-1","force":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/refresh", body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":true`)
	require.InDelta(t, 450000, plans.plans["bp-1"].Costs.Construction.Structure, 0.01)
}

func TestRefreshEndpointRejectsMissingProject(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/refresh", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshEndpointUnknownPlan(t *testing.T) {
	router, _ := newTestRouter(t)
	body := strings.NewReader(`{"project_id":"prj-1","force":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/nope/refresh", body))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestImpactPreviewEndpoint(t *testing.T) {
	router, plans := newTestRouter(t)
	body := strings.NewReader(`{"project_id":"prj-1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/impact-preview", body))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cost_change":50000`)
	// Previews never write the plan.
	require.InDelta(t, 400000, plans.plans["bp-1"].Costs.Construction.Structure, 0.01)
}

func TestHistoryEndpointCSV(t *testing.T) {
	router, _ := newTestRouter(t)
	body := strings.NewReader(`{"project_id":"prj-1","force":true}`)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/refresh", body))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans/bp-1/history?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Timestamp,Project,Impact")
	require.Contains(t, rec.Body.String(), "prj-1")
}

func TestHistoryEndpointPaginated(t *testing.T) {
	router, _ := newTestRouter(t)
	for range 2 {
		body := strings.NewReader(`{"project_id":"prj-1","force":true}`)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/refresh", body))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans/bp-1/history?per_page=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":2`)
	require.Contains(t, rec.Body.String(), `"total_pages":2`)
}

func TestRollbackEndpointUnknownEntry(t *testing.T) {
	router, _ := newTestRouter(t)
	body := strings.NewReader(`{"timestamp":"2026-01-01T00:00:00Z"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/rollback", body))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans/bp-1/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_valid":true`)
}
