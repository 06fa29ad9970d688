package checkin

import (
	"context"
	"fmt"
	"time"

	"ms-invitations/internal/logger"
	"ms-invitations/internal/metrics"
	"ms-invitations/internal/models"
)

type CheckInDBLayer interface {
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetByIDForEvent(ctx context.Context, eventID, id string) (*models.Invitation, error)
	GetByTokenForEvent(ctx context.Context, eventID, token string) (*models.Invitation, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error)
}

type EventReader interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

// CheckInService marks invitees as present at the door. Only the event
// owner may check people in.
type CheckInService struct {
	DB     CheckInDBLayer
	Events EventReader
	Logger *logger.Logger
	Now    func() time.Time
}

func NewCheckInService(db CheckInDBLayer, events EventReader, log *logger.Logger) *CheckInService {
	return &CheckInService{
		DB:     db,
		Events: events,
		Logger: log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// ManualCheckIn checks in an invitation picked from the attendee list.
func (s *CheckInService) ManualCheckIn(ctx context.Context, eventID, invitationID, principal string) (*models.CheckInResult, error) {
	if err := s.authorize(ctx, eventID, principal); err != nil {
		return nil, err
	}
	inv, err := s.DB.GetByIDForEvent(ctx, eventID, invitationID)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, inv)
}

// VerifyToken checks in the invitation whose QR code was scanned. Tokens of
// other events are reported as not found.
func (s *CheckInService) VerifyToken(ctx context.Context, eventID, principal, token string) (*models.CheckInResult, error) {
	if err := s.authorize(ctx, eventID, principal); err != nil {
		return nil, err
	}
	inv, err := s.DB.GetByTokenForEvent(ctx, eventID, token)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, inv)
}

func (s *CheckInService) authorize(ctx context.Context, eventID, principal string) error {
	event, err := s.Events.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.IsOwnedBy(principal) {
		s.Logger.LogSecurity("NOT_OWNER", fmt.Sprintf("principal %q tried to check in at event %s", principal, eventID))
		return fmt.Errorf("event %s: %w", eventID, models.ErrNotAuthorized)
	}
	return nil
}

func (s *CheckInService) checkIn(ctx context.Context, inv *models.Invitation) (*models.CheckInResult, error) {
	if result := settled(inv); result != nil {
		return s.record(result), nil
	}

	now := s.now()
	changed, err := s.DB.MarkCheckedIn(ctx, inv.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check in: %w", err)
	}
	if changed {
		inv.CheckedIn = true
		inv.CheckedInAt = &now
		inv.UpdatedAt = now
		return s.record(&models.CheckInResult{Outcome: models.CheckInSuccess, Invitation: inv, CheckedInAt: &now}), nil
	}

	// Another scan or an RSVP change got there first; report what it left.
	current, err := s.DB.GetByID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if result := settled(current); result != nil {
		return s.record(result), nil
	}
	return nil, fmt.Errorf("check-in of invitation %s did not apply", inv.ID)
}

// settled returns the outcome for an invitation that cannot be checked in,
// or nil when a check-in should be attempted.
func settled(inv *models.Invitation) *models.CheckInResult {
	switch {
	case inv.Status != models.InvitationAccepted:
		return &models.CheckInResult{Outcome: models.CheckInNotAccepted, Invitation: inv}
	case inv.CheckedIn:
		return &models.CheckInResult{Outcome: models.CheckInAlreadyCheckedIn, Invitation: inv, CheckedInAt: inv.CheckedInAt}
	default:
		return nil
	}
}

func (s *CheckInService) record(result *models.CheckInResult) *models.CheckInResult {
	metrics.Default().CheckIns.WithLabelValues(string(result.Outcome)).Inc()
	s.Logger.LogCheckIn(string(result.Outcome), result.Invitation.ID, result.Message())
	return result
}

func (s *CheckInService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}
