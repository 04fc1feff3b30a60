// Package reconcilehttp exposes the reconciliation engine over a JSON API.
package reconcilehttp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
	"github.com/cantiere-erp/cantiere-erp/internal/platform/httpx"
	"github.com/cantiere-erp/cantiere-erp/internal/reconcile"
	"github.com/cantiere-erp/cantiere-erp/internal/shared"
)

// Handler wires reconciliation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *reconcile.Service
	validate *validator.Validate
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *reconcile.Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectID}/costs", h.projectCosts)
	r.Route("/plans/{planID}", func(r chi.Router) {
		r.Post("/refresh", h.refresh)
		r.Post("/impact-preview", h.impactPreview)
		r.Get("/history", h.history)
		r.Post("/rollback", h.rollback)
		r.Post("/validate", h.validatePlan)
	})
}

type refreshRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	Force     bool   `json:"force"`
}

type previewRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
}

type rollbackRequest struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func (h *Handler) projectCosts(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	summaries, err := h.service.GetContractCosts(r.Context(), projectID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project_id": projectID, "costs": summaries})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result := h.service.Refresh(r.Context(), req.ProjectID, chi.URLParam(r, "planID"), req.Force)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) impactPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	preview, err := h.service.CalculatePotentialImpact(r.Context(), req.ProjectID, chi.URLParam(r, "planID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	entries, err := h.service.UpdateHistory(r.Context(), planID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=plan-%s-history.csv", planID))
		writer := csv.NewWriter(w)
		_ = writer.WriteAll(reconcile.ExportHistoryRows(entries))
		writer.Flush()
	case "xlsx":
		book, err := reconcile.ExportHistoryWorkbook(planID, entries)
		if err != nil {
			h.respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=plan-%s-history.xlsx", planID))
		if err := book.Write(w); err != nil && h.logger != nil {
			h.logger.Warn("write workbook", slog.Any("error", err))
		}
	default:
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		meta := shared.NewPagination(page, perPage, len(entries))
		start := (meta.Page - 1) * meta.PerPage
		if start > len(entries) {
			start = len(entries)
		}
		end := start + meta.PerPage
		if end > len(entries) {
			end = len(entries)
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"plan_id": planID, "history": entries[start:end], "pagination": meta})
	}
}

func (h *Handler) rollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ok, err := h.service.Rollback(r.Context(), chi.URLParam(r, "planID"), req.Timestamp)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rolled_back": ok})
}

func (h *Handler) validatePlan(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ValidatePlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planning.ErrPlanNotFound), errors.Is(err, reconcile.ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, reconcile.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error("reconcile http", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
