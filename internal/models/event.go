package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID          string    `bun:"id,pk" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description"`
	Location    string    `bun:"location" json:"location"`
	StartTime   time.Time `bun:"start_time,notnull" json:"start_time"`
	EndTime     time.Time `bun:"end_time,notnull" json:"end_time"`
	OwnerID     string    `bun:"owner_id,notnull" json:"owner_id"`
	Capacity    uint32    `bun:"capacity,notnull,default:0" json:"capacity"` // 0 means unlimited
	IsPublic    bool      `bun:"is_public,notnull,default:false" json:"is_public"`
	ImageURL    string    `bun:"image_url,nullzero" json:"image_url,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// IsPast reports whether the event has already ended at now.
func (e *Event) IsPast(now time.Time) bool {
	return now.After(e.EndTime)
}

// IsOwnedBy reports whether principal created the event. The anonymous
// principal owns nothing.
func (e *Event) IsOwnedBy(principal string) bool {
	return principal != "" && e.OwnerID == principal
}

// SpotsLeft returns the remaining capacity given the number of accepted
// invitations. The second value is true when capacity is unlimited, in which
// case the count is meaningless.
func (e *Event) SpotsLeft(attendeeCount int) (int, bool) {
	if e.Capacity == 0 {
		return 0, true
	}
	left := int(e.Capacity) - attendeeCount
	if left < 0 {
		return 0, false
	}
	return left, false
}

type EventFilter string

const (
	EventFilterUpcoming EventFilter = "upcoming"
	EventFilterPast     EventFilter = "past"
	EventFilterAll      EventFilter = "all"
)

// ParseEventFilter maps a query value to a filter, defaulting to upcoming.
func ParseEventFilter(s string) EventFilter {
	switch EventFilter(s) {
	case EventFilterPast:
		return EventFilterPast
	case EventFilterAll:
		return EventFilterAll
	default:
		return EventFilterUpcoming
	}
}

// InvitationCounts aggregates invitation rows of one event by state.
type InvitationCounts struct {
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Declined  int `json:"declined"`
	CheckedIn int `json:"checked_in"`
}

type EventStats struct {
	AttendeeCount  int  `json:"attendee_count"`
	SpotsLeft      int  `json:"spots_left"`
	Unlimited      bool `json:"unlimited"`
	CheckedInCount int  `json:"checked_in_count"`
	PendingCount   int  `json:"pending_count"`
	DeclinedCount  int  `json:"declined_count"`
}

// NewEventStats derives the capacity figures of e from its invitation counts.
func NewEventStats(e *Event, counts InvitationCounts) EventStats {
	left, unlimited := e.SpotsLeft(counts.Accepted)
	return EventStats{
		AttendeeCount:  counts.Accepted,
		SpotsLeft:      left,
		Unlimited:      unlimited,
		CheckedInCount: counts.CheckedIn,
		PendingCount:   counts.Pending,
		DeclinedCount:  counts.Declined,
	}
}

// EventView is what a principal sees when opening an event page.
type EventView struct {
	Event      *Event      `json:"event"`
	IsOwner    bool        `json:"is_owner"`
	Invitation *Invitation `json:"invitation,omitempty"`
	Stats      EventStats  `json:"stats"`
}
