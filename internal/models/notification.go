package models

import "time"

type NotificationKind string

const (
	NotificationInvitation NotificationKind = "invitation"
	NotificationReminder   NotificationKind = "reminder"
)

// Notification is the message handed to the dispatcher. Delivery and retry
// are the dispatcher's concern.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	InvitationID string           `json:"invitation_id"`
	RSVPURL      string           `json:"rsvp_url,omitempty"`
	EnqueuedAt   time.Time        `json:"enqueued_at"`
}
