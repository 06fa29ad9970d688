package account_api

import (
	"fmt"
	"net/http"

	"ms-invitations/internal/auth"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/utils"
)

type Handler struct {
	Directory *auth.Directory
	Logger    *logger.Logger
}

func NewHandler(dir *auth.Directory, log *logger.Logger) *Handler {
	return &Handler{Directory: dir, Logger: log}
}

// Register links the caller's identity to an email: POST /api/users/me
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.Profile
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	user, err := h.Directory.Register(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.LogSecurity("ACCOUNT_REGISTERED", fmt.Sprintf("user %s linked to %s", user.ID, user.Email))
	utils.WriteSuccess(w, http.StatusOK, "Profile saved", user)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Directory.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile", user)
}
