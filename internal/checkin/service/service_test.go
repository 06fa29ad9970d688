package checkin_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	checkin "ms-invitations/internal/checkin/service"
	"ms-invitations/internal/database/testdb"
	eventdb "ms-invitations/internal/events/db"
	invdb "ms-invitations/internal/invitations/db"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
)

type MockCheckInDB struct {
	mock.Mock
}

func (m *MockCheckInDB) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockCheckInDB) GetByIDForEvent(ctx context.Context, eventID, id string) (*models.Invitation, error) {
	args := m.Called(ctx, eventID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockCheckInDB) GetByTokenForEvent(ctx context.Context, eventID, token string) (*models.Invitation, error) {
	args := m.Called(ctx, eventID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockCheckInDB) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type staticEvents struct {
	event *models.Event
}

func (s staticEvents) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	if s.event == nil || s.event.ID != id {
		return nil, models.ErrNotFound
	}
	return s.event, nil
}

var doorTime = time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)

func newMockService(db *MockCheckInDB) *checkin.CheckInService {
	svc := checkin.NewCheckInService(db, staticEvents{event: &models.Event{ID: "event-1", OwnerID: "owner-1"}}, logger.NewNopLogger())
	svc.Now = func() time.Time { return doorTime }
	return svc
}

func TestManualCheckInNotAuthorized(t *testing.T) {
	db := new(MockCheckInDB)
	svc := newMockService(db)

	_, err := svc.ManualCheckIn(context.Background(), "event-1", "inv-1", "guest")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	_, err = svc.ManualCheckIn(context.Background(), "event-1", "inv-1", "")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	_, err = svc.ManualCheckIn(context.Background(), "missing", "inv-1", "owner-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	db.AssertNotCalled(t, "GetByIDForEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestManualCheckInNotAccepted(t *testing.T) {
	for _, status := range []models.InvitationStatus{models.InvitationPending, models.InvitationDeclined} {
		db := new(MockCheckInDB)
		svc := newMockService(db)
		ctx := context.Background()
		db.On("GetByIDForEvent", ctx, "event-1", "inv-1").Return(&models.Invitation{ID: "inv-1", Status: status}, nil)

		result, err := svc.ManualCheckIn(ctx, "event-1", "inv-1", "owner-1")

		require.NoError(t, err)
		assert.Equal(t, models.CheckInNotAccepted, result.Outcome)
		assert.False(t, result.Invitation.CheckedIn)
		db.AssertNotCalled(t, "MarkCheckedIn", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestManualCheckInAlreadyCheckedIn(t *testing.T) {
	db := new(MockCheckInDB)
	svc := newMockService(db)
	ctx := context.Background()
	earlier := doorTime.Add(-time.Hour)
	db.On("GetByIDForEvent", ctx, "event-1", "inv-1").Return(&models.Invitation{
		ID: "inv-1", Name: "Ann", Status: models.InvitationAccepted, CheckedIn: true, CheckedInAt: &earlier,
	}, nil)

	result, err := svc.ManualCheckIn(ctx, "event-1", "inv-1", "owner-1")

	require.NoError(t, err)
	assert.Equal(t, models.CheckInAlreadyCheckedIn, result.Outcome)
	assert.Equal(t, earlier, *result.CheckedInAt)
	assert.Contains(t, result.Message(), "already checked in")
	db.AssertNotCalled(t, "MarkCheckedIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestManualCheckInLostRace(t *testing.T) {
	db := new(MockCheckInDB)
	svc := newMockService(db)
	ctx := context.Background()
	winner := doorTime.Add(-time.Second)
	db.On("GetByIDForEvent", ctx, "event-1", "inv-1").Return(&models.Invitation{ID: "inv-1", Status: models.InvitationAccepted}, nil)
	db.On("MarkCheckedIn", ctx, "inv-1", doorTime).Return(false, nil)
	db.On("GetByID", ctx, "inv-1").Return(&models.Invitation{
		ID: "inv-1", Status: models.InvitationAccepted, CheckedIn: true, CheckedInAt: &winner,
	}, nil)

	result, err := svc.ManualCheckIn(ctx, "event-1", "inv-1", "owner-1")

	require.NoError(t, err)
	assert.Equal(t, models.CheckInAlreadyCheckedIn, result.Outcome)
	assert.Equal(t, winner, *result.CheckedInAt)
}

func TestVerifyTokenUnknownForEvent(t *testing.T) {
	db := new(MockCheckInDB)
	svc := newMockService(db)
	ctx := context.Background()
	db.On("GetByTokenForEvent", ctx, "event-1", "foreign-token").Return(nil, models.ErrNotFound)

	_, err := svc.VerifyToken(ctx, "event-1", "owner-1", "foreign-token")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

type sqliteFixture struct {
	svc   *checkin.CheckInService
	invDB *invdb.DB
	event *models.Event
}

func newSQLiteFixture(t *testing.T) *sqliteFixture {
	bunDB := testdb.New(t)
	events := &eventdb.DB{Bun: bunDB}
	event := &models.Event{
		ID: "event-1", Title: "Gala", OwnerID: "owner-1",
		StartTime: doorTime, EndTime: doorTime.Add(3 * time.Hour),
		CreatedAt: doorTime, UpdatedAt: doorTime,
	}
	require.NoError(t, events.CreateEvent(context.Background(), event))

	invDB := &invdb.DB{Bun: bunDB}
	svc := checkin.NewCheckInService(invDB, events, logger.NewNopLogger())
	svc.Now = func() time.Time { return doorTime }
	return &sqliteFixture{svc: svc, invDB: invDB, event: event}
}

func (f *sqliteFixture) invite(t *testing.T, id, email string, status models.InvitationStatus) *models.Invitation {
	inv := &models.Invitation{
		ID: id, EventID: f.event.ID, UserID: f.event.OwnerID, Email: email, Name: email,
		Status: status, Token: "token-" + id, CreatedAt: doorTime, UpdatedAt: doorTime,
	}
	ok, err := f.invDB.InsertInvitation(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, ok)
	return inv
}

func TestDoubleCheckInKeepsTimestamp(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()
	f.invite(t, "inv-1", "ann@example.com", models.InvitationAccepted)

	first, err := f.svc.ManualCheckIn(ctx, f.event.ID, "inv-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInSuccess, first.Outcome)

	f.svc.Now = func() time.Time { return doorTime.Add(10 * time.Minute) }
	second, err := f.svc.VerifyToken(ctx, f.event.ID, "owner-1", "token-inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInAlreadyCheckedIn, second.Outcome)
	assert.True(t, doorTime.Equal(*second.CheckedInAt))

	stored, err := f.invDB.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, stored.CheckedIn)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, doorTime.Equal(*stored.CheckedInAt))
}

func TestCheckInPendingNeverSetsFlag(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()
	f.invite(t, "inv-1", "pat@example.com", models.InvitationPending)

	result, err := f.svc.VerifyToken(ctx, f.event.ID, "owner-1", "token-inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckInNotAccepted, result.Outcome)

	stored, err := f.invDB.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.False(t, stored.CheckedIn)
	assert.Nil(t, stored.CheckedInAt)
}

func TestConcurrentScansCheckInOnce(t *testing.T) {
	f := newSQLiteFixture(t)
	ctx := context.Background()
	f.invite(t, "inv-1", "ann@example.com", models.InvitationAccepted)

	const scans = 8
	outcomes := make([]models.CheckInOutcome, scans)
	var wg sync.WaitGroup
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.VerifyToken(ctx, f.event.ID, "owner-1", "token-inv-1")
			if assert.NoError(t, err) {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, o := range outcomes {
		if o == models.CheckInSuccess {
			successes++
		} else {
			assert.Equal(t, models.CheckInAlreadyCheckedIn, o)
		}
	}
	assert.Equal(t, 1, successes)
}
