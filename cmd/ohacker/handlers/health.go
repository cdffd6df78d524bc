package handlers

import (
	"net/http"

	"github.com/hairizuanbinnoorazman/ohacker/job"
)

// HealthResponse reports whether the server can reach its job ledger.
type HealthResponse struct {
	Status string `json:"status"`
	Ledger string `json:"ledger"`
}

// HealthHandler serves /health.
type HealthHandler struct {
	jobStore job.Store
}

// NewHealthHandler creates a health handler backed by jobStore.
func NewHealthHandler(jobStore job.Store) *HealthHandler {
	return &HealthHandler{jobStore: jobStore}
}

// ServeHTTP answers 503 when the ledger cannot be queried.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.jobStore.Count(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Ledger: "unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Ledger: "ok"})
}
