package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/coins"
	mw "dailymint/internal/middleware"
	"dailymint/internal/models"
	"dailymint/internal/response"
	"dailymint/internal/store"
)

type UserHandler struct {
	users  store.Users
	logger *zap.Logger
}

func NewUserHandler(users store.Users, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// GetMe returns the current user's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ToUserDTO(u))
}

// UpdateMe updates provided fields on the current user's profile
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, h.logger, apperr.Validation("invalid body"))
		return
	}
	for _, f := range []*string{body.Username, body.DisplayName, body.PfpURL, body.WalletAddress} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if body.Username != nil && (len(*body.Username) == 0 || len(*body.Username) > 64) {
		response.Error(w, r, h.logger, apperr.Validation("username must be 1-64 characters"))
		return
	}
	if body.WalletAddress != nil && *body.WalletAddress != "" && !coins.IsAddress(*body.WalletAddress) {
		response.Error(w, r, h.logger, apperr.Validation("wallet_address must be a 0x-prefixed 20-byte hex address"))
		return
	}

	u, err := h.users.UpdateUser(r.Context(), mw.UserID(r.Context()), body)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ToUserDTO(u))
}

// DeactivateMe soft-deactivates the account; later requests get 403.
func (h *UserHandler) DeactivateMe(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	if err := h.users.DeactivateUser(r.Context(), userID); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}
	h.logger.Info("user deactivated", zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
