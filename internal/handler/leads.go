package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/middleware"
	"github.com/lexassist-ai/intake-platform/internal/model"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
)

// LeadHandler serves the firm dashboard's read API for captured leads.
// Lead mutation (assignment, status transitions) belongs to the CRM
// workflows, not this service.
type LeadHandler struct {
	leads  *store.LeadStore
	logger *logger.Logger
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(leads *store.LeadStore, log *logger.Logger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: log,
	}
}

// List handles GET /api/v1/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	limit, offset := parsePagination(r, 20)

	leads, total, err := h.leads.List(ctx, tenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListLeadsResponse{
		Leads:   leads,
		Total:   total,
		HasMore: offset+len(leads) < total,
	})
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	leadID := chi.URLParam(r, "id")

	if err := middleware.ValidateLeadID(leadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.leads.Get(ctx, tenantID, leadID)
	if err != nil {
		h.logger.Error("failed to get lead", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}
