package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// errorResponse is the JSON error payload shape shared by all handlers.
type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"` // only populated outside production
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondServiceError translates service-layer errors into the HTTP error
// taxonomy. Internal detail never leaks: unknown errors become a generic 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Message, Field: validationErr.Field})
		return
	}

	var conflictErr *services.ConflictError
	if errors.As(err, &conflictErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: conflictErr.Error(), Field: conflictErr.Field})
		return
	}

	if errors.Is(err, services.ErrInvalidCredentials) {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: services.ErrInvalidCredentials.Error()})
		return
	}

	if errors.Is(err, services.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	var preconditionErr *services.PreconditionError
	if errors.As(err, &preconditionErr) {
		log.Error().Err(err).Msg("Precondition violation")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	log.Error().Err(err).Msg("Unhandled service error")
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// botErrorStatus maps a downstream failure classification to the status code
// returned to the client.
func botErrorStatus(kind services.BotErrorKind) int {
	switch kind {
	case services.BotErrUnreachable, services.BotErrDNSFailure:
		return http.StatusServiceUnavailable
	case services.BotErrTimeout:
		return http.StatusGatewayTimeout
	case services.BotErrUpstreamClient, services.BotErrUpstreamServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// botErrorMessage is the user-safe message per classification; raw downstream
// detail is attached separately and only outside production.
func botErrorMessage(kind services.BotErrorKind) string {
	switch kind {
	case services.BotErrUnreachable, services.BotErrDNSFailure:
		return "the assistant is currently unavailable"
	case services.BotErrTimeout:
		return "the assistant took too long to respond"
	case services.BotErrUpstreamClient, services.BotErrUpstreamServer:
		return "the assistant could not process the request"
	default:
		return "the assistant returned an unexpected response"
	}
}
