package invitations_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-invitations/internal/auth"
	"ms-invitations/internal/database/testdb"
	eventdb "ms-invitations/internal/events/db"
	invdb "ms-invitations/internal/invitations/db"
	invitations "ms-invitations/internal/invitations/service"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
	"ms-invitations/internal/qr"
)

type storeFixture struct {
	svc    *invitations.InvitationService
	invDB  *invdb.DB
	events *eventdb.DB
}

// newStoreFixture wires the service to real stores on in-memory SQLite.
func newStoreFixture(t *testing.T, qrr invitations.QRRenderer) *storeFixture {
	bunDB := testdb.New(t)
	f := &storeFixture{
		invDB:  &invdb.DB{Bun: bunDB},
		events: &eventdb.DB{Bun: bunDB},
	}
	f.svc = invitations.NewInvitationService(f.invDB, f.events, &auth.Directory{Bun: bunDB}, qrr, nil, logger.NewNopLogger())
	f.svc.Now = func() time.Time { return fixedNow }
	return f
}

func (f *storeFixture) createEvent(t *testing.T, capacity uint32) *models.Event {
	event := newEvent()
	event.Capacity = capacity
	event.CreatedAt = fixedNow
	event.UpdatedAt = fixedNow
	require.NoError(t, f.events.CreateEvent(context.Background(), event))
	return event
}

func TestStoreDuplicateInvitationYieldsOneRow(t *testing.T) {
	f := newStoreFixture(t, qr.NewQRGenerator(64))
	ctx := context.Background()
	event := f.createEvent(t, 0)

	first, err := f.svc.CreateInvitation(ctx, event.ID, "alice@example.com", "Alice", "owner-1")
	require.NoError(t, err)

	_, err = f.svc.CreateInvitation(ctx, event.ID, "ALICE@example.com", "Other Alice", "owner-1")
	assert.ErrorIs(t, err, models.ErrDuplicateInvitation)

	list, err := f.invDB.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "Alice", list[0].Name)
}

func TestStoreRSVPPermissiveAndOneShot(t *testing.T) {
	f := newStoreFixture(t, stubQR{})
	ctx := context.Background()
	event := f.createEvent(t, 0)

	inv, err := f.svc.CreateInvitation(ctx, event.ID, "bob@example.com", "", "owner-1")
	require.NoError(t, err)

	_, err = f.svc.RecordRSVP(ctx, inv.Token, "accepted")
	require.NoError(t, err)
	changed, err := f.svc.RecordRSVP(ctx, inv.Token, "declined")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, changed.Status)

	f.svc.Policy = models.RSVPOneShot
	other, err := f.svc.CreateInvitation(ctx, event.ID, "carol@example.com", "", "owner-1")
	require.NoError(t, err)

	_, err = f.svc.RecordRSVP(ctx, other.Token, "accepted")
	require.NoError(t, err)
	_, err = f.svc.RecordRSVP(ctx, other.Token, "declined")
	assert.ErrorIs(t, err, models.ErrAlreadyResponded)

	stored, err := f.invDB.GetByToken(ctx, other.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, stored.Status)
}

func TestStoreRSVPAfterEventEndedLeavesStatus(t *testing.T) {
	f := newStoreFixture(t, stubQR{})
	ctx := context.Background()
	event := f.createEvent(t, 0)

	inv, err := f.svc.CreateInvitation(ctx, event.ID, "late@example.com", "", "owner-1")
	require.NoError(t, err)

	f.svc.Now = func() time.Time { return event.EndTime.Add(time.Second) }
	_, err = f.svc.RecordRSVP(ctx, inv.Token, "accepted")
	assert.ErrorIs(t, err, models.ErrEventEnded)

	stored, err := f.invDB.GetByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, stored.Status)
}

func TestStoreCapacityIsAdvisory(t *testing.T) {
	f := newStoreFixture(t, stubQR{})
	ctx := context.Background()
	event := f.createEvent(t, 2)

	accept := func(email string) {
		inv, err := f.svc.CreateInvitation(ctx, event.ID, email, "", "owner-1")
		require.NoError(t, err)
		_, err = f.svc.RecordRSVP(ctx, inv.Token, "accepted")
		require.NoError(t, err)
	}
	stats := func() models.EventStats {
		counts, err := f.invDB.CountByStatus(ctx, event.ID)
		require.NoError(t, err)
		return models.NewEventStats(event, counts)
	}

	accept("alice@x.com")
	accept("bob@x.com")
	s := stats()
	assert.Equal(t, 2, s.AttendeeCount)
	assert.Equal(t, 0, s.SpotsLeft)
	assert.False(t, s.Unlimited)

	accept("carol@x.com")
	s = stats()
	assert.Equal(t, 3, s.AttendeeCount)
	assert.Equal(t, 0, s.SpotsLeft)
}

func TestStoreTenThousandDistinctTokens(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping bulk invitation test in short mode")
	}
	f := newStoreFixture(t, stubQR{})
	f.svc.NewToken = qr.NewToken
	ctx := context.Background()
	event := f.createEvent(t, 0)

	emails := make([]string, 10000)
	for i := range emails {
		emails[i] = fmt.Sprintf("guest%05d@example.com", i)
	}

	n, err := f.svc.CreateBulkInvitations(ctx, event.ID, emails, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 10000, n)

	var distinct int
	err = f.invDB.Bun.NewSelect().
		Model((*models.Invitation)(nil)).
		ColumnExpr("COUNT(DISTINCT token)").
		Where("event_id = ?", event.ID).
		Scan(ctx, &distinct)
	require.NoError(t, err)
	assert.Equal(t, 10000, distinct)
}
