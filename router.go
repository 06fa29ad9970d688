package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ms-invitations/internal/accounts/account_api"
	"ms-invitations/internal/auth"
	"ms-invitations/internal/checkin/checkin_api"
	"ms-invitations/internal/events/event_api"
	"ms-invitations/internal/invitations/invitation_api"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/utils"
)

type handlers struct {
	Accounts    *account_api.Handler
	Events      *event_api.Handler
	Invitations *invitation_api.Handler
	CheckIn     *checkin_api.Handler
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprint(ww.Status()), time.Since(start).String())
		})
	}
}

func newRouter(h handlers, verifier auth.Verifier, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})
	r.Handle("/metrics", promhttp.Handler())

	// /rsvp/{token}/ is the link sent in invitation emails.
	rsvp := func(r chi.Router) {
		r.Get("/", h.Invitations.ViewRSVP)
		r.Post("/", h.Invitations.RecordRSVP)
		r.Get("/qr.png", h.Invitations.QRCode)
	}
	r.Route("/api/rsvp/{token}", rsvp)
	r.Route("/rsvp/{token}", rsvp)
	log.Info("ROUTER", "RSVP routes registered under /rsvp and /api/rsvp")

	// --- Optionally authenticated ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, false, log))
		r.Get("/api/events/public", h.Events.ListPublic)
		r.Get("/api/events/{eventId}", h.Events.GetEvent)
		r.Get("/api/events/{eventId}/attendees", h.Events.ListAttendees)
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, true, log))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Get("/api/users/me", h.Accounts.Me)
		r.Post("/api/users/me", h.Accounts.Register)

		r.Get("/api/events", h.Events.Dashboard)
		r.Post("/api/events", h.Events.CreateEvent)

		// Flat patterns: a mounted subrouter here would shadow the public GET above.
		r.Put("/api/events/{eventId}", h.Events.UpdateEvent)
		r.Delete("/api/events/{eventId}", h.Events.DeleteEvent)
		r.Get("/api/events/{eventId}/invitations", h.Invitations.ListInvitations)
		r.Post("/api/events/{eventId}/invitations", h.Invitations.CreateInvitation)
		r.Post("/api/events/{eventId}/invitations/bulk", h.Invitations.BulkInvite)
		r.Get("/api/events/{eventId}/invitations/{invitationId}/badge.pdf", h.Invitations.Badge)
		r.Post("/api/events/{eventId}/invitations/{invitationId}/check-in", h.CheckIn.CheckIn)
		r.Post("/api/events/{eventId}/verify-qr", h.CheckIn.VerifyQR)
		log.Info("ROUTER", "Event, invitation and check-in routes registered under /api/events")
	})

	return r
}
