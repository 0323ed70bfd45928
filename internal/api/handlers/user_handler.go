package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for the authenticated user's account.
type UserHandler struct {
	accounts  services.AccountServiceProvider
	provision services.ProvisionServiceProvider
	events    services.EventServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts services.AccountServiceProvider, provision services.ProvisionServiceProvider, events services.EventServiceProvider) *UserHandler {
	return &UserHandler{accounts: accounts, provision: provision, events: events}
}

// GetMe returns the authenticated user's profile, lazily provisioning the
// resource locators on first access.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	account, err := h.accounts.GetAccountByID(claims.UserID)
	if err != nil {
		log.Warn().Err(err).Str("account_id", claims.UserID).Msg("Account from token not found")
		respondServiceError(w, err)
		return
	}

	wasProvisioned := account.Provisioned()
	account, err = h.provision.EnsureProvisioned(account)
	if err != nil {
		log.Error().Err(err).Str("account_id", claims.UserID).Msg("Failed to provision account resources")
		respondServiceError(w, err)
		return
	}
	if !wasProvisioned {
		if err := h.events.CreateEvent("account.provisioned", "info", "Resources provisioned for "+account.Username, &account.ID); err != nil {
			log.Error().Err(err).Msg("Failed to record provisioning event")
		}
	}

	respondJSON(w, http.StatusOK, account)
}

// UpdateMe updates the authenticated user's profile information.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.accounts.UpdateProfile(claims.UserID, payload.Name, payload.Email)
	if err != nil {
		log.Warn().Err(err).Str("account_id", claims.UserID).Msg("Failed to update profile")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// ChangePassword changes the authenticated user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.accounts.UpdatePassword(claims.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		log.Warn().Err(err).Str("account_id", claims.UserID).Msg("Failed to change password")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"})
}
