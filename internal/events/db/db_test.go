package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-invitations/internal/database/testdb"
	"ms-invitations/internal/events/db"
	"ms-invitations/internal/models"
)

var base = time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)

func newEvent(id, owner string, start time.Time, public bool) *models.Event {
	return &models.Event{
		ID: id, Title: "Event " + id, OwnerID: owner,
		StartTime: start, EndTime: start.Add(2 * time.Hour),
		IsPublic: public, CreatedAt: base, UpdatedAt: base,
	}
}

func TestCreateGetUpdateEvent(t *testing.T) {
	store := &db.DB{Bun: testdb.New(t)}
	ctx := context.Background()

	event := newEvent("e1", "owner", base.Add(24*time.Hour), true)
	event.Capacity = 10
	require.NoError(t, store.CreateEvent(ctx, event))

	got, err := store.GetEventByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Event e1", got.Title)
	assert.Equal(t, uint32(10), got.Capacity)
	assert.True(t, got.StartTime.Equal(event.StartTime))

	got.Title = "Renamed"
	require.NoError(t, store.UpdateEvent(ctx, got))
	again, err := store.GetEventByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)

	_, err = store.GetEventByID(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, store.UpdateEvent(ctx, newEvent("nope", "owner", base, false)), models.ErrNotFound)
	assert.ErrorIs(t, store.DeleteEvent(ctx, "nope"), models.ErrNotFound)
}

func TestListStartingBetween(t *testing.T) {
	store := &db.DB{Bun: testdb.New(t)}
	ctx := context.Background()

	dayStart := base.Add(24 * time.Hour)
	for _, e := range []*models.Event{
		newEvent("today", "o", base.Add(10*time.Hour), true),
		newEvent("tomorrow-early", "o", dayStart, true),
		newEvent("tomorrow-late", "o", dayStart.Add(23*time.Hour), false),
		newEvent("day-after", "o", dayStart.Add(24*time.Hour), true),
	} {
		require.NoError(t, store.CreateEvent(ctx, e))
	}

	found, err := store.ListStartingBetween(ctx, dayStart, dayStart.Add(24*time.Hour), base)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "tomorrow-early", found[0].ID)
	assert.Equal(t, "tomorrow-late", found[1].ID)
}

func newMockStore(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })
	return &db.DB{Bun: bun.NewDB(sqldb, pgdialect.New())}, mock
}

func TestDeleteEventRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "invitation delete fails",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM "invitations"`).WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: sql.ErrConnDone,
		},
		{
			name: "event missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM "invitations"`).WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec(`DELETE FROM "events"`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM "invitations"`).WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectExec(`DELETE FROM "events"`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.mock(mock)

			err := store.DeleteEvent(context.Background(), "e1")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
