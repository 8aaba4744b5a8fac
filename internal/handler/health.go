package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/feedline/internal/domain"
)

// HealthHandler reports whether the record store answers.
type HealthHandler struct {
	records domain.RecordRepository
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(records domain.RecordRepository) *HealthHandler {
	return &HealthHandler{records: records}
}

// HandleHealthz responds 200 {"status":"ok"} when the store can list its
// records and 503 otherwise. Listing touches the data directory or table
// itself, so a store that vanished underneath the server is caught.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.records.Identities(r.Context()); err != nil {
		slog.Error("health check", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
