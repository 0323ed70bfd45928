package handlers

import (
	"net/http"

	"github.com/ragpanel/ragpanel-be/internal/monitoring"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// SystemHandler serves downstream health and host resource snapshots.
type SystemHandler struct {
	statuses services.StatusServiceProvider
	stats    *monitoring.StatUpdater
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(statuses services.StatusServiceProvider, stats *monitoring.StatUpdater) *SystemHandler {
	return &SystemHandler{statuses: statuses, stats: stats}
}

// Status returns the latest health of the monitored downstream services.
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.GetStatuses()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read service statuses")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"services": statuses})
}

// Stats returns the most recent host resource usage sample.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stats.Latest())
}
