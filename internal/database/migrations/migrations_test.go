package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-invitations/internal/database/migrations"
	invitation_db "ms-invitations/internal/invitations/db"
	"ms-invitations/internal/logger"
	"ms-invitations/internal/models"
)

const migrationsDir = "../../../migrations"

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres container test in short mode")
	}
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "invitations",
				"POSTGRES_PASSWORD": "invitations",
				"POSTGRES_DB":       "invitations",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Skipping test, could not start Postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://invitations:invitations@%s:%s/invitations?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, sqldb.PingContext(ctx))

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func seedEvent(t *testing.T, db *bun.DB) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:        "event-pg",
		Title:     "Postgres Night",
		StartTime: now.Add(24 * time.Hour),
		EndTime:   now.Add(27 * time.Hour),
		OwnerID:   "owner-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)
	return event
}

func TestMigrateUpDownAndVersion(t *testing.T) {
	db := startPostgres(t)
	runner := migrations.NewRunner(db, migrationsDir, logger.NewNopLogger())

	require.NoError(t, runner.MigrateUp())
	v, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, runner.MigrateUp())

	require.NoError(t, runner.MigrateDown())
	v, _, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
}

func TestMissingMigrationsDir(t *testing.T) {
	db := startPostgres(t)
	runner := migrations.NewRunner(db, "./does-not-exist", logger.NewNopLogger())

	err := runner.MigrateUp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestConcurrentInvitesOnPostgres(t *testing.T) {
	db := startPostgres(t)
	require.NoError(t, migrations.NewRunner(db, migrationsDir, logger.NewNopLogger()).MigrateUp())
	event := seedEvent(t, db)
	store := &invitation_db.DB{Bun: db}
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			now := time.Now().UTC()
			ok, err := store.InsertInvitation(ctx, &models.Invitation{
				ID:        fmt.Sprintf("inv-%d", i),
				EventID:   event.ID,
				UserID:    event.OwnerID,
				Email:     "race@example.com",
				Name:      "race",
				Status:    models.InvitationPending,
				Token:     fmt.Sprintf("token-%d", i),
				CreatedAt: now,
				UpdatedAt: now,
			})
			assert.NoError(t, err)
			wins <- ok
		}(i)
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	assert.Equal(t, 1, won)

	count, err := db.NewSelect().Model((*models.Invitation)(nil)).Where("event_id = ?", event.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentCheckInOnPostgres(t *testing.T) {
	db := startPostgres(t)
	require.NoError(t, migrations.NewRunner(db, migrationsDir, logger.NewNopLogger()).MigrateUp())
	event := seedEvent(t, db)
	store := &invitation_db.DB{Bun: db}
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := store.InsertInvitation(ctx, &models.Invitation{
		ID: "inv-1", EventID: event.ID, UserID: event.OwnerID, Email: "guest@example.com", Name: "guest",
		Status: models.InvitationAccepted, Token: "token-1", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	const scanners = 8
	var wg sync.WaitGroup
	results := make(chan bool, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.MarkCheckedIn(ctx, "inv-1", now.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
			results <- ok
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	inv, err := store.GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, inv.CheckedIn)
	require.NotNil(t, inv.CheckedInAt)
}
