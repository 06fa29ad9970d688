package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-invitations/internal/database/testdb"
	"ms-invitations/internal/models"
)

func TestDirectoryLookupByEmail(t *testing.T) {
	dir := &Directory{Bun: testdb.New(t)}
	ctx := t.Context()

	user := &models.User{Email: "Alice@Example.com", FullName: "Alice"}
	require.NoError(t, dir.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)

	found, err := dir.LookupByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := dir.LookupByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDirectoryRegister(t *testing.T) {
	dir := &Directory{Bun: testdb.New(t)}
	ctx := t.Context()

	user, err := dir.Register(ctx, "sub-1", Profile{Email: " Guest@Example.com", FullName: "Guest"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", user.ID)
	assert.Equal(t, "guest@example.com", user.Email)
	created := user.CreatedAt

	// Registering again updates the profile in place.
	user, err = dir.Register(ctx, "sub-1", Profile{Email: "guest@example.com", FullName: "Guest Star"})
	require.NoError(t, err)
	assert.Equal(t, "Guest Star", user.FullName)
	assert.True(t, created.Equal(user.CreatedAt))

	found, err := dir.LookupByEmail(ctx, "GUEST@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "sub-1", found.ID)

	_, err = dir.Register(ctx, "sub-2", Profile{Email: "guest@example.com", FullName: "Impostor"})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestDirectoryRegisterValidates(t *testing.T) {
	dir := &Directory{Bun: testdb.New(t)}
	ctx := t.Context()

	tests := []struct {
		name    string
		id      string
		profile Profile
		wantErr error
	}{
		{"anonymous", "", Profile{Email: "a@example.com", FullName: "A"}, models.ErrNotAuthorized},
		{"bad email", "sub-1", Profile{Email: "nope", FullName: "A"}, models.ErrInvalidInput},
		{"missing name", "sub-1", Profile{Email: "a@example.com", FullName: "  "}, models.ErrInvalidInput},
		{"long name", "sub-1", Profile{Email: "a@example.com", FullName: strings.Repeat("n", 201)}, models.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dir.Register(ctx, tt.id, tt.profile)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := dir.GetUser(ctx, "sub-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
