package handler

import (
	"net/http"

	natsclient "github.com/lexassist-ai/intake-platform/internal/nats"
	"github.com/lexassist-ai/intake-platform/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	db         *store.DB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(natsClient *natsclient.Client, db *store.DB) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		db:         db,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient == nil || !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	if h.db == nil || h.db.Ping(r.Context()) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not reachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
