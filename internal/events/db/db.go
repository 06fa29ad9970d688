package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-invitations/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("title", "description", "location", "start_time", "end_time", "capacity", "is_public", "image_url", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", event.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteEvent removes the event and every invitation it owns in one
// transaction.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Invitation)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete invitations: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

func applyFilter(q *bun.SelectQuery, filter models.EventFilter, now time.Time) *bun.SelectQuery {
	switch filter {
	case models.EventFilterPast:
		return q.Where("ev.end_time < ?", now)
	case models.EventFilterUpcoming:
		return q.Where("ev.end_time >= ?", now)
	default:
		return q
	}
}

// ListByOwner returns the events the user created, latest start first.
func (d *DB) ListByOwner(ctx context.Context, ownerID string, filter models.EventFilter, now time.Time) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Where("ev.owner_id = ?", ownerID).
		OrderExpr("ev.start_time DESC")
	err := applyFilter(q, filter, now).Scan(ctx)
	return events, err
}

func (d *DB) invitedEventIDs(userID string) *bun.SelectQuery {
	return d.Bun.NewSelect().
		Model((*models.Invitation)(nil)).
		Column("event_id").
		Where("user_id = ?", userID)
}

// ListInvitedFor returns events the user holds an invitation for, excluding
// the ones they own.
func (d *DB) ListInvitedFor(ctx context.Context, userID string, filter models.EventFilter, now time.Time) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Where("ev.id IN (?)", d.invitedEventIDs(userID)).
		Where("ev.owner_id <> ?", userID).
		OrderExpr("ev.start_time DESC")
	err := applyFilter(q, filter, now).Scan(ctx)
	return events, err
}

// ListUpcomingVisible returns events that have not ended and are public or
// invite the user, soonest first.
func (d *DB) ListUpcomingVisible(ctx context.Context, userID string, now time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Where("ev.end_time >= ?", now).
		OrderExpr("ev.start_time ASC").
		Limit(limit)

	if userID == "" {
		q = q.Where("ev.is_public = ?", true)
	} else {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("ev.is_public = ?", true).
				WhereOr("ev.id IN (?)", d.invitedEventIDs(userID))
		})
	}

	err := q.Scan(ctx)
	return events, err
}

// ListStartingBetween returns events whose start falls in [from, to) and
// whose end is not before notEndedBy.
func (d *DB) ListStartingBetween(ctx context.Context, from, to, notEndedBy time.Time) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("ev.start_time >= ?", from).
		Where("ev.start_time < ?", to).
		Where("ev.end_time >= ?", notEndedBy).
		OrderExpr("ev.start_time ASC").
		Scan(ctx)
	return events, err
}
