package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateInvitation = errors.New("invitation already exists for this email")
	ErrEventEnded          = errors.New("event has already ended")
	ErrAlreadyResponded    = errors.New("invitation has already been answered")
	ErrInvalidResponse     = errors.New("invalid rsvp response")
	ErrInvalidEventWindow  = errors.New("event end time is before its start time")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTaken          = errors.New("email is registered to another account")
)

// InvalidEmailError names the first entry of an input that is not an email address.
type InvalidEmailError struct {
	Value string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid email: %s", e.Value)
}
