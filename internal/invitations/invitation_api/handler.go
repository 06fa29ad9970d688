package invitation_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-invitations/internal/auth"
	invitations "ms-invitations/internal/invitations/service"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
	"ms-invitations/internal/utils"
)

type Handler struct {
	InvitationService *invitations.InvitationService
	Logger            *logger.Logger
}

func NewHandler(svc *invitations.InvitationService, log *logger.Logger) *Handler {
	return &Handler{InvitationService: svc, Logger: log}
}

// CreateInvitation expects {"email": "...", "name": "..."}; name is optional.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	inv, err := h.InvitationService.CreateInvitation(r.Context(), chi.URLParam(r, "eventId"), body.Email, body.Name, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, fmt.Sprintf("Invitation sent to %s!", inv.Email), inv)
}

// BulkInvite expects {"emails": "one address per line"}.
func (h *Handler) BulkInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Emails string `json:"emails"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	emails := invitations.ParseEmailList(body.Emails)
	if len(emails) == 0 {
		utils.WriteError(w, fmt.Errorf("%w: no email addresses given", models.ErrInvalidInput))
		return
	}

	created, err := h.InvitationService.CreateBulkInvitations(r.Context(), chi.URLParam(r, "eventId"), emails, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, fmt.Sprintf("%d invitations sent successfully!", created), map[string]int{
		"created": created,
		"skipped": len(emails) - created,
	})
}

func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	list, err := h.InvitationService.ListInvitations(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Invitations", list)
}

func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.InvitationService.Badge(r.Context(), chi.URLParam(r, "eventId"), chi.URLParam(r, "invitationId"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="badge-%s.pdf"`, chi.URLParam(r, "invitationId")))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// ViewRSVP shows the invitation behind an RSVP link. The token is the credential.
func (h *Handler) ViewRSVP(w http.ResponseWriter, r *http.Request) {
	inv, event, err := h.InvitationService.InvitationByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Invitation", map[string]interface{}{
		"invitation": inv,
		"event":      event,
	})
}

// RecordRSVP expects {"response": "accepted"|"declined"}.
func (h *Handler) RecordRSVP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Response string `json:"response"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	inv, err := h.InvitationService.RecordRSVP(r.Context(), chi.URLParam(r, "token"), body.Response)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Your response has been recorded: %s", inv.Status), inv)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.InvitationService.QRForToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
