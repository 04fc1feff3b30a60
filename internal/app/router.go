package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cantiere-erp/cantiere-erp/internal/observability"
	reconcilehttp "github.com/cantiere-erp/cantiere-erp/internal/reconcile/http"
	"github.com/cantiere-erp/cantiere-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ReconcileHandler *reconcilehttp.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Cantiere defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		if params.ReconcileHandler != nil {
			params.ReconcileHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
