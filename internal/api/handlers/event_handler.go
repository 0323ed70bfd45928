package handlers

import (
	"net/http"
	"strconv"

	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// EventHandler serves the audit event log.
type EventHandler struct {
	events services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events services.EventServiceProvider) *EventHandler {
	return &EventHandler{events: events}
}

// List returns the most recent audit events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500", Field: "limit"})
			return
		}
		limit = n
	}

	events, err := h.events.GetRecentEvents(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query events")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
