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

// InsertInvitation stores inv unless the event already has an invitation for
// the same email. The unique (event_id, email) constraint decides, so two
// concurrent inserts cannot both win. It reports whether a row was written.
func (d *DB) InsertInvitation(ctx context.Context, inv *models.Invitation) (bool, error) {
	res, err := d.Bun.NewInsert().
		Model(inv).
		On("CONFLICT (event_id, email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DB) ExistsForEmail(ctx context.Context, eventID, email string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Invitation)(nil)).
		Where("event_id = ?", eventID).
		Where("email = ?", email).
		Exists(ctx)
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	return d.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

func (d *DB) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return d.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("token = ?", token)
	})
}

func (d *DB) GetByIDForEvent(ctx context.Context, eventID, id string) (*models.Invitation, error) {
	return d.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id).Where("event_id = ?", eventID)
	})
}

func (d *DB) GetByTokenForEvent(ctx context.Context, eventID, token string) (*models.Invitation, error) {
	return d.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("token = ?", token).Where("event_id = ?", eventID)
	})
}

// GetForPrincipal returns the invitation the user holds for the event, or
// nil when there is none.
func (d *DB) GetForPrincipal(ctx context.Context, eventID, userID string) (*models.Invitation, error) {
	inv, err := d.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("event_id = ?", eventID).Where("user_id = ?", userID).OrderExpr("created_at ASC")
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return inv, err
}

func (d *DB) getOne(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) (*models.Invitation, error) {
	var inv models.Invitation
	err := where(d.Bun.NewSelect().Model(&inv)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invitation: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateStatus records an RSVP answer. With onlyPending the update applies
// only to an unanswered invitation. It reports whether a row changed.
func (d *DB) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus, onlyPending bool, at time.Time) (bool, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Invitation)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at).
		Where("id = ?", id)
	if onlyPending {
		q = q.Where("status = ?", models.InvitationPending)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkCheckedIn flips checked_in for an accepted invitation that is not yet
// checked in. The condition is part of the UPDATE, so of two racing scans
// exactly one changes the row and the original timestamp is never replaced.
func (d *DB) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Invitation)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.InvitationAccepted).
		Where("checked_in = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByEvent returns the event's invitations, newest first.
func (d *DB) ListByEvent(ctx context.Context, eventID string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := d.Bun.NewSelect().
		Model(&invitations).
		ExcludeColumn("qr_code").
		Where("event_id = ?", eventID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return invitations, err
}

func (d *DB) ListByEventAndStatus(ctx context.Context, eventID string, status models.InvitationStatus) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := d.Bun.NewSelect().
		Model(&invitations).
		ExcludeColumn("qr_code").
		Where("event_id = ?", eventID).
		Where("status = ?", status).
		OrderExpr("name ASC").
		Scan(ctx)
	return invitations, err
}

type statusCount struct {
	Status models.InvitationStatus `bun:"status"`
	Count  int                     `bun:"count"`
}

func (d *DB) CountByStatus(ctx context.Context, eventID string) (models.InvitationCounts, error) {
	var counts models.InvitationCounts

	var rows []statusCount
	err := d.Bun.NewSelect().
		Model((*models.Invitation)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return counts, err
	}

	for _, row := range rows {
		switch row.Status {
		case models.InvitationPending:
			counts.Pending = row.Count
		case models.InvitationAccepted:
			counts.Accepted = row.Count
		case models.InvitationDeclined:
			counts.Declined = row.Count
		}
	}

	counts.CheckedIn, err = d.Bun.NewSelect().
		Model((*models.Invitation)(nil)).
		Where("event_id = ?", eventID).
		Where("checked_in = ?", true).
		Count(ctx)
	return counts, err
}
