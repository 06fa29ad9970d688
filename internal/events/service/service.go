package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
)

const DefaultUpcomingLimit = 5

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, filter models.EventFilter, now time.Time) ([]models.Event, error)
	ListInvitedFor(ctx context.Context, userID string, filter models.EventFilter, now time.Time) ([]models.Event, error)
	ListUpcomingVisible(ctx context.Context, userID string, now time.Time, limit int) ([]models.Event, error)
}

type InvitationReader interface {
	GetForPrincipal(ctx context.Context, eventID, userID string) (*models.Invitation, error)
	CountByStatus(ctx context.Context, eventID string) (models.InvitationCounts, error)
	ListByEventAndStatus(ctx context.Context, eventID string, status models.InvitationStatus) ([]models.Invitation, error)
}

// EventInput is the editable part of an event.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"max=200"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Capacity    uint32    `json:"capacity"`
	IsPublic    bool      `json:"is_public"`
	ImageURL    string    `json:"image_url" validate:"omitempty,url,max=500"`
}

// Dashboard lists the events a user runs and the ones they are invited to.
type Dashboard struct {
	Filter  models.EventFilter `json:"filter"`
	Created []models.Event     `json:"created"`
	Invited []models.Event     `json:"invited"`
}

type EventService struct {
	DB          EventDBLayer
	Invitations InvitationReader
	Logger      *logger.Logger
	Now         func() time.Time

	validate *validator.Validate
}

func NewEventService(db EventDBLayer, invitations InvitationReader, log *logger.Logger) *EventService {
	return &EventService{
		DB:          db,
		Invitations: invitations,
		Logger:      log,
		Now:         func() time.Time { return time.Now().UTC() },
		validate:    validator.New(),
	}
}

func (s *EventService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Validate checks the input fields and the start/end ordering. An event may
// end at the instant it starts.
func (s *EventService) Validate(in *EventInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)

	if s.validate == nil {
		s.validate = validator.New()
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if in.EndTime.Before(in.StartTime) {
		return models.ErrInvalidEventWindow
	}
	return nil
}

func (s *EventService) CreateEvent(ctx context.Context, principal string, in EventInput) (*models.Event, error) {
	if principal == "" {
		return nil, models.ErrNotAuthorized
	}
	if err := s.Validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	event := &models.Event{
		ID:        uuid.NewString(),
		OwnerID:   principal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(event, in)

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s created by %s", event.ID, principal))
	return event, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, eventID, principal string, in EventInput) (*models.Event, error) {
	event, err := s.owned(ctx, eventID, principal)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(&in); err != nil {
		return nil, err
	}

	apply(event, in)
	event.UpdatedAt = s.now()
	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s updated", event.ID))
	return event, nil
}

// DeleteEvent removes the event together with all of its invitations.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, principal string) error {
	if _, err := s.owned(ctx, eventID, principal); err != nil {
		return err
	}
	if err := s.DB.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s deleted with its invitations", eventID))
	return nil
}

// GetEvent returns the event page for principal. Private events are only
// visible to their owner and invitees.
func (s *EventService) GetEvent(ctx context.Context, eventID, principal string) (*models.EventView, error) {
	event, inv, err := s.visible(ctx, eventID, principal)
	if err != nil {
		return nil, err
	}
	counts, err := s.Invitations.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count invitations: %w", err)
	}
	return &models.EventView{
		Event:      event,
		IsOwner:    event.IsOwnedBy(principal),
		Invitation: inv,
		Stats:      models.NewEventStats(event, counts),
	}, nil
}

// ListAttendees returns the accepted invitations of a visible event.
func (s *EventService) ListAttendees(ctx context.Context, eventID, principal string) ([]models.Invitation, error) {
	if _, _, err := s.visible(ctx, eventID, principal); err != nil {
		return nil, err
	}
	return s.Invitations.ListByEventAndStatus(ctx, eventID, models.InvitationAccepted)
}

func (s *EventService) Dashboard(ctx context.Context, principal string, filter models.EventFilter) (*Dashboard, error) {
	if principal == "" {
		return nil, models.ErrNotAuthorized
	}
	now := s.now()
	created, err := s.DB.ListByOwner(ctx, principal, filter, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list created events: %w", err)
	}
	invited, err := s.DB.ListInvitedFor(ctx, principal, filter, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list invited events: %w", err)
	}
	return &Dashboard{Filter: filter, Created: created, Invited: invited}, nil
}

// ListUpcomingPublic backs the home page: public events plus the ones
// principal is invited to, soonest first.
func (s *EventService) ListUpcomingPublic(ctx context.Context, principal string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	return s.DB.ListUpcomingVisible(ctx, principal, s.now(), limit)
}

func (s *EventService) owned(ctx context.Context, eventID, principal string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwnedBy(principal) {
		s.Logger.LogSecurity("NOT_OWNER", fmt.Sprintf("principal %q tried to modify event %s", principal, eventID))
		return nil, fmt.Errorf("event %s: %w", eventID, models.ErrNotAuthorized)
	}
	return event, nil
}

// visible returns the event and, for a non-owner, the invitation principal
// holds for it.
func (s *EventService) visible(ctx context.Context, eventID, principal string) (*models.Event, *models.Invitation, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event.IsOwnedBy(principal) {
		return event, nil, nil
	}

	var inv *models.Invitation
	if principal != "" {
		inv, err = s.Invitations.GetForPrincipal(ctx, eventID, principal)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load invitation: %w", err)
		}
	}
	if !event.IsPublic && inv == nil {
		return nil, nil, fmt.Errorf("event %s: %w", eventID, models.ErrNotAuthorized)
	}
	return event, inv, nil
}

func apply(event *models.Event, in EventInput) {
	event.Title = in.Title
	event.Description = in.Description
	event.Location = in.Location
	event.StartTime = in.StartTime.UTC()
	event.EndTime = in.EndTime.UTC()
	event.Capacity = in.Capacity
	event.IsPublic = in.IsPublic
	event.ImageURL = in.ImageURL
}
