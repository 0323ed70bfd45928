package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// BotHandler proxies chat queries to the downstream inference service.
type BotHandler struct {
	bot        services.BotServiceProvider
	events     services.EventServiceProvider
	production bool
}

// NewBotHandler creates a new BotHandler.
func NewBotHandler(bot services.BotServiceProvider, events services.EventServiceProvider, production bool) *BotHandler {
	return &BotHandler{bot: bot, events: events, production: production}
}

// QueryPayload defines the structure for bot query requests.
type QueryPayload struct {
	Input string `json:"input"`
}

// Query forwards the user's question to the inference service and relays the
// answer, mapping classified downstream failures onto gateway status codes.
func (h *BotHandler) Query(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	var payload QueryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(payload.Input) == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required", Field: "input"})
		return
	}

	answer, err := h.bot.Query(r.Context(), claims.UserID, payload.Input)
	if err != nil {
		h.respondBotError(w, claims.UserID, err)
		return
	}

	respondJSON(w, http.StatusOK, answer)
}

func (h *BotHandler) respondBotError(w http.ResponseWriter, accountID string, err error) {
	var botErr *services.BotError
	if !errors.As(err, &botErr) {
		log.Error().Err(err).Str("account_id", accountID).Msg("Bot query failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	// Raw downstream detail stays server-side; clients get the generic
	// message plus the classification code, with detail only outside
	// production.
	log.Error().
		Str("account_id", accountID).
		Str("kind", string(botErr.Kind)).
		Str("detail", botErr.Detail).
		Msg("Downstream inference call failed")

	if err := h.events.CreateEvent("bot.query.fail", "error", "Bot query failed: "+string(botErr.Kind), &accountID); err != nil {
		log.Error().Err(err).Msg("Failed to record bot failure event")
	}

	resp := errorResponse{
		Error: botErrorMessage(botErr.Kind),
		Code:  string(botErr.Kind),
	}
	if !h.production {
		resp.Detail = botErr.Detail
	}
	respondJSON(w, botErrorStatus(botErr.Kind), resp)
}
