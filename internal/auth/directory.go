package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-invitations/internal/models"
)

// Directory answers account lookups against the users table.
type Directory struct {
	Bun *bun.DB
}

// Profile is what an authenticated caller supplies about themselves.
type Profile struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

var validate = validator.New()

// GetUser returns the account with the given id.
func (d *Directory) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates or updates the account for the principal id so later
// invitations to its email link to it. An email owned by a different
// account is rejected with models.ErrEmailTaken.
func (d *Directory) Register(ctx context.Context, id string, p Profile) (*models.User, error) {
	if id == "" {
		return nil, models.ErrNotAuthorized
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.FullName = strings.TrimSpace(p.FullName)
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	owner, err := d.LookupByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.ID != id {
		return nil, models.ErrEmailTaken
	}

	user := &models.User{ID: id, Email: p.Email, FullName: p.FullName, CreatedAt: time.Now().UTC()}
	_, err = d.Bun.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("full_name = EXCLUDED.full_name").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return d.GetUser(ctx, id)
}

// LookupByEmail returns the account registered with email, or nil when there
// is none.
func (d *Directory) LookupByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers an account. The id is usually the identity
// provider's subject; an empty id gets a fresh one.
func (d *Directory) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}
