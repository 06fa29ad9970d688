package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-invitations/internal/logger"
	"ms-invitations/internal/metrics"
	"ms-invitations/internal/models"
)

type InvitationReader interface {
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
}

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// Processor turns queued notifications into emails.
type Processor struct {
	Invitations InvitationReader
	Events      EventReader
	Mailer      Mailer
	Logger      *logger.Logger
	// BaseURL prefixes RSVP and QR links.
	BaseURL string
	// Location is the zone dates and times are shown in.
	Location *time.Location
}

type emailData struct {
	Name       string
	EventTitle string
	Date       string
	Time       string
	Location   string
	RSVPURL    string
	QRURL      string
}

// Handle sends the email for n. Notifications whose invitation or event is
// gone are dropped without error.
func (p *Processor) Handle(ctx context.Context, n models.Notification) error {
	inv, err := p.Invitations.GetByID(ctx, n.InvitationID)
	if errors.Is(err, models.ErrNotFound) {
		p.Logger.Warn("NOTIFY", fmt.Sprintf("Invitation %s no longer exists, skipping %s", n.InvitationID, n.Kind))
		return nil
	}
	if err != nil {
		return err
	}

	if n.Kind == models.NotificationReminder && inv.Status != models.InvitationAccepted {
		p.Logger.Info("NOTIFY", fmt.Sprintf("Invitation %s is %s, skipping reminder", inv.ID, inv.Status))
		return nil
	}

	event, err := p.Events.GetEventByID(ctx, inv.EventID)
	if errors.Is(err, models.ErrNotFound) {
		p.Logger.Warn("NOTIFY", fmt.Sprintf("Event %s no longer exists, skipping %s", inv.EventID, n.Kind))
		return nil
	}
	if err != nil {
		return err
	}

	data := p.data(inv, event)
	template := "invitation"
	if n.Kind == models.NotificationReminder {
		template = "reminder"
	} else if n.RSVPURL != "" {
		data.RSVPURL = n.RSVPURL
	}

	subject, html, text, err := Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s email: %w", template, err)
	}

	if err := p.Mailer.Send(ctx, inv.Email, subject, html, text); err != nil {
		metrics.Default().EmailsSent.WithLabelValues(string(n.Kind), "failed").Inc()
		return err
	}
	metrics.Default().EmailsSent.WithLabelValues(string(n.Kind), "sent").Inc()
	p.Logger.LogInvitation("EMAIL_SENT", inv.ID, fmt.Sprintf("%s email to %s", n.Kind, inv.Email))
	return nil
}

func (p *Processor) data(inv *models.Invitation, event *models.Event) emailData {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	start := event.StartTime.In(loc)
	return emailData{
		Name:       inv.Name,
		EventTitle: event.Title,
		Date:       start.Format("Monday, January 2, 2006"),
		Time:       start.Format("15:04 MST"),
		Location:   event.Location,
		RSVPURL:    p.BaseURL + "/rsvp/" + inv.Token + "/",
		QRURL:      p.BaseURL + "/api/rsvp/" + inv.Token + "/qr.png",
	}
}
