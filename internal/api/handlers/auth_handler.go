package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	accounts services.AccountServiceProvider
	tokens   *auth.TokenManager
	events   services.EventServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts services.AccountServiceProvider, tokens *auth.TokenManager, events services.EventServiceProvider) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, events: events}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new account registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.accounts.Register(payload.Name, payload.Email, payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Registration rejected")
		respondServiceError(w, err)
		return
	}

	if err := h.events.CreateEvent("auth.register", "info", "Account registered: "+account.Username, &account.ID); err != nil {
		log.Error().Err(err).Msg("Failed to record registration event")
	}

	respondJSON(w, http.StatusCreated, account.Summary())
}

// Login handles authentication and token issuing.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.accounts.Authenticate(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		respondServiceError(w, err)
		return
	}

	token, err := h.tokens.Generate(account)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Failed to generate token")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate token"})
		return
	}

	if err := h.events.CreateEvent("auth.login", "info", "Account logged in: "+account.Username, &account.ID); err != nil {
		log.Error().Err(err).Msg("Failed to record login event")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  account.Summary(),
	})
}
