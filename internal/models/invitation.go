package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`

	ID      string `bun:"id,pk" json:"id"`
	EventID string `bun:"event_id,notnull,unique:invitations_event_email" json:"event_id"`
	// UserID is the matching account, or the event owner when the email has none.
	UserID      string           `bun:"user_id,notnull" json:"user_id"`
	Email       string           `bun:"email,notnull,unique:invitations_event_email" json:"email"`
	Name        string           `bun:"name,notnull" json:"name"`
	Status      InvitationStatus `bun:"status,notnull" json:"status"`
	Token       string           `bun:"token,notnull,unique" json:"token"`
	CheckedIn   bool             `bun:"checked_in,notnull,default:false" json:"checked_in"`
	CheckedInAt *time.Time       `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	QRCode      []byte           `bun:"qr_code" json:"-"`
	CreatedAt   time.Time        `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time        `bun:"updated_at,notnull" json:"updated_at"`
}

// ParseRSVPResponse accepts only the two answers an invitee can give.
func ParseRSVPResponse(s string) (InvitationStatus, error) {
	switch InvitationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case InvitationAccepted:
		return InvitationAccepted, nil
	case InvitationDeclined:
		return InvitationDeclined, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidResponse, s)
	}
}

// RSVPPolicy decides whether an invitee may change an answer already given.
type RSVPPolicy string

const (
	RSVPPermissive RSVPPolicy = "permissive"
	RSVPOneShot    RSVPPolicy = "one-shot"
)

func ParseRSVPPolicy(s string) RSVPPolicy {
	if RSVPPolicy(s) == RSVPOneShot {
		return RSVPOneShot
	}
	return RSVPPermissive
}

type CheckInOutcome string

const (
	CheckInSuccess          CheckInOutcome = "checked_in"
	CheckInAlreadyCheckedIn CheckInOutcome = "already_checked_in"
	CheckInNotAccepted      CheckInOutcome = "not_accepted"
)

// CheckInResult is the informational outcome of a check-in attempt.
// CheckedInAt is set for CheckInSuccess and CheckInAlreadyCheckedIn.
type CheckInResult struct {
	Outcome     CheckInOutcome `json:"outcome"`
	Invitation  *Invitation    `json:"invitation"`
	CheckedInAt *time.Time     `json:"checked_in_at,omitempty"`
}

func (r *CheckInResult) Message() string {
	switch r.Outcome {
	case CheckInSuccess:
		return fmt.Sprintf("%s checked in successfully!", r.Invitation.Name)
	case CheckInAlreadyCheckedIn:
		if r.CheckedInAt == nil {
			return fmt.Sprintf("%s already checked in.", r.Invitation.Name)
		}
		return fmt.Sprintf("%s already checked in at %s.", r.Invitation.Name, r.CheckedInAt.Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s has not accepted the invitation.", r.Invitation.Name)
	}
}
