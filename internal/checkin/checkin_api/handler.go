package checkin_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-invitations/internal/auth"
	checkin "ms-invitations/internal/checkin/service"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
	"ms-invitations/internal/utils"
)

type Handler struct {
	CheckInService *checkin.CheckInService
	Logger         *logger.Logger
}

func NewHandler(svc *checkin.CheckInService, log *logger.Logger) *Handler {
	return &Handler{CheckInService: svc, Logger: log}
}

// CheckIn handles POST /api/events/{eventId}/invitations/{invitationId}/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.CheckInService.ManualCheckIn(r.Context(), chi.URLParam(r, "eventId"), chi.URLParam(r, "invitationId"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeResult(w, result)
}

// VerifyQR handles the scanner: POST /api/events/{eventId}/verify-qr {"token": "..."}
func (h *Handler) VerifyQR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}
	if body.Token == "" {
		utils.WriteError(w, fmt.Errorf("%w: token is required", models.ErrInvalidInput))
		return
	}

	result, err := h.CheckInService.VerifyToken(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context()), body.Token)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeResult(w, result)
}

// writeResult answers 200 for every outcome. Only a successful check-in
// sets success, so a scanner can tell a repeat scan apart without an error.
func writeResult(w http.ResponseWriter, result *models.CheckInResult) {
	resp := utils.SuccessResponse(result.Message(), result)
	resp.Success = result.Outcome == models.CheckInSuccess
	utils.WriteJSON(w, http.StatusOK, resp)
}
