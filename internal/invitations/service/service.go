package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-invitations/internal/logger"
	"ms-invitations/internal/metrics"
	"ms-invitations/internal/models"
	"ms-invitations/internal/qr"
)

type InvitationDBLayer interface {
	InsertInvitation(ctx context.Context, inv *models.Invitation) (bool, error)
	ExistsForEmail(ctx context.Context, eventID, email string) (bool, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	GetByIDForEvent(ctx context.Context, eventID, id string) (*models.Invitation, error)
	UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, onlyPending bool, at time.Time) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Invitation, error)
}

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// Directory resolves an invitee's account. A nil user means no account.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (*models.User, error)
}

type QRRenderer interface {
	RenderToken(payload string) ([]byte, error)
}

type Dispatcher interface {
	Enqueue(ctx context.Context, n models.Notification) error
}

type BadgeRenderer interface {
	Generate(event *models.Event, inv *models.Invitation, qrPNG []byte) ([]byte, error)
}

type InvitationService struct {
	DB         InvitationDBLayer
	Events     EventReader
	Directory  Directory
	QR         QRRenderer
	Dispatcher Dispatcher
	Badges     BadgeRenderer
	Logger     *logger.Logger

	// BaseURL prefixes the RSVP link sent with invitation emails.
	BaseURL string
	Policy  models.RSVPPolicy

	Now      func() time.Time
	NewToken func() string
}

func NewInvitationService(db InvitationDBLayer, events EventReader, dir Directory, qrr QRRenderer, dispatcher Dispatcher, log *logger.Logger) *InvitationService {
	return &InvitationService{
		DB:         db,
		Events:     events,
		Directory:  dir,
		QR:         qrr,
		Dispatcher: dispatcher,
		Logger:     log,
		Policy:     models.RSVPPermissive,
		Now:        func() time.Time { return time.Now().UTC() },
		NewToken:   qr.NewToken,
	}
}

// RSVPURL is the link an invitee follows to answer.
func (s *InvitationService) RSVPURL(token string) string {
	return s.BaseURL + "/rsvp/" + token + "/"
}

func (s *InvitationService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *InvitationService) token() string {
	if s.NewToken == nil {
		return qr.NewToken()
	}
	return s.NewToken()
}

// ownedEvent loads the event and fails with ErrNotAuthorized unless
// principal created it.
func (s *InvitationService) ownedEvent(ctx context.Context, eventID, principal string) (*models.Event, error) {
	event, err := s.Events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwnedBy(principal) {
		s.Logger.LogSecurity("NOT_OWNER", fmt.Sprintf("principal %q tried to manage event %s", principal, eventID))
		return nil, fmt.Errorf("event %s: %w", eventID, models.ErrNotAuthorized)
	}
	return event, nil
}

// CreateInvitation invites one email to an event owned by principal. A second
// invitation for the same email fails with ErrDuplicateInvitation and writes
// nothing.
func (s *InvitationService) CreateInvitation(ctx context.Context, eventID, email, name, principal string) (*models.Invitation, error) {
	event, err := s.ownedEvent(ctx, eventID, principal)
	if err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName(email)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	return s.create(ctx, event, email, name)
}

// CreateBulkInvitations validates the whole batch first and rejects it on the
// first invalid entry. Valid entries that are already invited are skipped and
// not counted.
func (s *InvitationService) CreateBulkInvitations(ctx context.Context, eventID string, emails []string, principal string) (int, error) {
	event, err := s.ownedEvent(ctx, eventID, principal)
	if err != nil {
		return 0, err
	}

	report := ValidateEmailBatch(emails)
	if err := report.FirstInvalid(); err != nil {
		return 0, err
	}

	created := 0
	seen := make(map[string]bool, len(report.Valid))
	for _, email := range report.Valid {
		if seen[email] {
			continue
		}
		seen[email] = true

		_, err := s.create(ctx, event, email, DefaultName(email))
		if errors.Is(err, models.ErrDuplicateInvitation) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	s.Logger.LogInvitation("BULK", eventID, fmt.Sprintf("created %d of %d invitations", created, len(report.Valid)))
	return created, nil
}

func (s *InvitationService) create(ctx context.Context, event *models.Event, email, name string) (*models.Invitation, error) {
	exists, err := s.DB.ExistsForEmail(ctx, event.ID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invitation: %w", err)
	}
	if exists {
		metrics.Default().DuplicatesSkipped.Inc()
		return nil, fmt.Errorf("%s: %w", email, models.ErrDuplicateInvitation)
	}

	userID := event.OwnerID
	user, err := s.Directory.LookupByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invitee: %w", err)
	}
	if user != nil {
		userID = user.ID
	}

	token := s.token()
	qrPNG, err := s.QR.RenderToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}

	now := s.now()
	inv := &models.Invitation{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		UserID:    userID,
		Email:     email,
		Name:      name,
		Status:    models.InvitationPending,
		Token:     token,
		QRCode:    qrPNG,
		CreatedAt: now,
		UpdatedAt: now,
	}

	inserted, err := s.DB.InsertInvitation(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent invite for the same email.
		metrics.Default().DuplicatesSkipped.Inc()
		return nil, fmt.Errorf("%s: %w", email, models.ErrDuplicateInvitation)
	}

	metrics.Default().InvitationsCreated.Inc()
	s.Logger.LogInvitation("CREATED", inv.ID, fmt.Sprintf("invited %s to %s", email, event.ID))

	s.dispatch(ctx, models.Notification{
		Kind:         models.NotificationInvitation,
		InvitationID: inv.ID,
		RSVPURL:      s.RSVPURL(token),
		EnqueuedAt:   now,
	})
	return inv, nil
}

// dispatch hands a notification to the dispatcher. Failures are logged and
// never reach the caller.
func (s *InvitationService) dispatch(ctx context.Context, n models.Notification) {
	if s.Dispatcher == nil {
		return
	}
	if err := s.Dispatcher.Enqueue(context.WithoutCancel(ctx), n); err != nil {
		metrics.Default().NotificationsFailed.WithLabelValues(string(n.Kind)).Inc()
		s.Logger.Error("NOTIFY", fmt.Sprintf("failed to enqueue %s notification for %s: %v", n.Kind, n.InvitationID, err))
		return
	}
	metrics.Default().NotificationsEnqueued.WithLabelValues(string(n.Kind)).Inc()
}

// RecordRSVP stores the invitee's answer. The token is the only credential.
// Under the one-shot policy a second answer fails with ErrAlreadyResponded.
func (s *InvitationService) RecordRSVP(ctx context.Context, token, response string) (*models.Invitation, error) {
	status, err := models.ParseRSVPResponse(response)
	if err != nil {
		return nil, err
	}

	inv, err := s.DB.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	event, err := s.Events.GetEventByID(ctx, inv.EventID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if event.IsPast(now) {
		return nil, fmt.Errorf("event %s: %w", event.ID, models.ErrEventEnded)
	}

	oneShot := s.Policy == models.RSVPOneShot
	changed, err := s.DB.UpdateStatus(ctx, inv.ID, status, oneShot, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record rsvp: %w", err)
	}
	if !changed {
		if oneShot {
			return nil, fmt.Errorf("invitation %s: %w", inv.ID, models.ErrAlreadyResponded)
		}
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, models.ErrNotFound)
	}

	inv.Status = status
	inv.UpdatedAt = now
	metrics.Default().RSVPs.WithLabelValues(string(status)).Inc()
	s.Logger.LogInvitation("RSVP", inv.ID, fmt.Sprintf("%s answered %s", inv.Email, status))
	return inv, nil
}

// ListInvitations returns every invitation of an event, newest first.
func (s *InvitationService) ListInvitations(ctx context.Context, eventID, principal string) ([]models.Invitation, error) {
	if _, err := s.ownedEvent(ctx, eventID, principal); err != nil {
		return nil, err
	}
	return s.DB.ListByEvent(ctx, eventID)
}

// InvitationByToken backs the RSVP page.
func (s *InvitationService) InvitationByToken(ctx context.Context, token string) (*models.Invitation, *models.Event, error) {
	inv, err := s.DB.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.Events.GetEventByID(ctx, inv.EventID)
	if err != nil {
		return nil, nil, err
	}
	return inv, event, nil
}

// QRForToken returns the stored QR image, rendering it again if the row has
// none.
func (s *InvitationService) QRForToken(ctx context.Context, token string) ([]byte, error) {
	inv, err := s.DB.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.qrFor(inv)
}

func (s *InvitationService) qrFor(inv *models.Invitation) ([]byte, error) {
	if len(inv.QRCode) > 0 {
		return inv.QRCode, nil
	}
	return s.QR.RenderToken(inv.Token)
}

// Badge renders a printable PDF with the invitee's name and QR code.
func (s *InvitationService) Badge(ctx context.Context, eventID, invitationID, principal string) ([]byte, error) {
	event, err := s.ownedEvent(ctx, eventID, principal)
	if err != nil {
		return nil, err
	}
	inv, err := s.DB.GetByIDForEvent(ctx, eventID, invitationID)
	if err != nil {
		return nil, err
	}
	qrPNG, err := s.qrFor(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	if s.Badges == nil {
		return nil, errors.New("badge rendering is not configured")
	}
	return s.Badges.Generate(event, inv, qrPNG)
}
