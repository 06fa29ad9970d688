package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-invitations/internal/logger"
	"ms-invitations/internal/metrics"
	"ms-invitations/internal/models"
)

// ErrAlreadyRan is returned when the reminders for a day were already sent.
var ErrAlreadyRan = errors.New("reminders already ran for this day")

type EventLister interface {
	ListStartingBetween(ctx context.Context, from, to, notEndedBy time.Time) ([]models.Event, error)
}

type InvitationLister interface {
	ListByEventAndStatus(ctx context.Context, eventID string, status models.InvitationStatus) ([]models.Invitation, error)
}

type Dispatcher interface {
	Enqueue(ctx context.Context, n models.Notification) error
}

// RunLock guards against two triggers sending the same day's reminders.
type RunLock interface {
	Acquire(ctx context.Context, day string) (bool, error)
	Release(ctx context.Context, day string) error
}

type Scheduler struct {
	Events      EventLister
	Invitations InvitationLister
	Dispatcher  Dispatcher
	Lock        RunLock // optional
	Location    *time.Location
	Logger      *logger.Logger
}

// ReminderWindow returns the calendar day after now in loc as [from, to).
func ReminderWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	to := time.Date(local.Year(), local.Month(), local.Day()+2, 0, 0, 0, 0, loc)
	return from, to
}

// RunDailyReminders enqueues one reminder per accepted invitation of every
// event starting tomorrow that has not already ended. It returns the number
// of events processed.
func (s *Scheduler) RunDailyReminders(ctx context.Context, now time.Time) (int, error) {
	from, to := ReminderWindow(now, s.Location)
	day := from.Format("2006-01-02")

	if s.Lock != nil {
		ok, err := s.Lock.Acquire(ctx, day)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%s: %w", day, ErrAlreadyRan)
		}
	}

	count, err := s.run(ctx, now, from, to)
	if err != nil && s.Lock != nil {
		if rerr := s.Lock.Release(ctx, day); rerr != nil {
			s.Logger.Warn("REMINDER", fmt.Sprintf("Failed to release lock for %s: %v", day, rerr))
		}
	}
	return count, err
}

func (s *Scheduler) run(ctx context.Context, now, from, to time.Time) (int, error) {
	events, err := s.Events.ListStartingBetween(ctx, from.UTC(), to.UTC(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list tomorrow's events: %w", err)
	}

	for _, event := range events {
		invitations, err := s.Invitations.ListByEventAndStatus(ctx, event.ID, models.InvitationAccepted)
		if err != nil {
			return 0, fmt.Errorf("failed to list attendees of %s: %w", event.ID, err)
		}

		sent := 0
		for _, inv := range invitations {
			n := models.Notification{
				Kind:         models.NotificationReminder,
				InvitationID: inv.ID,
				EnqueuedAt:   now.UTC(),
			}
			if err := s.Dispatcher.Enqueue(ctx, n); err != nil {
				metrics.Default().NotificationsFailed.WithLabelValues(string(n.Kind)).Inc()
				s.Logger.Error("REMINDER", fmt.Sprintf("Failed to enqueue reminder for %s: %v", inv.ID, err))
				continue
			}
			metrics.Default().NotificationsEnqueued.WithLabelValues(string(n.Kind)).Inc()
			sent++
		}

		metrics.Default().ReminderEvents.Inc()
		s.Logger.Info("REMINDER", fmt.Sprintf("Event %s: %d of %d reminders enqueued", event.ID, sent, len(invitations)))
	}

	return len(events), nil
}
