package event_api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-invitations/internal/auth"
	events "ms-invitations/internal/events/service"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
	"ms-invitations/internal/utils"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func NewHandler(svc *events.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: svc, Logger: log}
}

// ListPublic serves the home page list: GET /api/events/public?limit=5
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.EventService.ListUpcomingPublic(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Upcoming events", list)
}

// Dashboard lists the caller's own and invited events: GET /api/events?filter=upcoming|past|all
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	filter := models.ParseEventFilter(r.URL.Query().Get("filter"))
	board, err := h.EventService.Dashboard(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Dashboard", board)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in events.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.EventService.CreateEvent(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event created successfully!", event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.EventService.GetEvent(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event", view)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in events.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.EventService.UpdateEvent(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context()), in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated successfully!", event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.EventService.DeleteEvent(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context())); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event deleted successfully!", nil)
}

func (h *Handler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := h.EventService.ListAttendees(r.Context(), chi.URLParam(r, "eventId"), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Attendees", attendees)
}
