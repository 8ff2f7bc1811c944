package domain

import (
	"context"
	"time"
)

// Attendance is the fact of one person's relationship to one event. (PersonID, EventID) is unique.
type Attendance struct {
	PersonID      int64      `json:"person_id"`
	EventID       int64      `json:"event_id"`
	RSVP          bool       `json:"rsvp"`
	Approved      bool       `json:"approved"`
	CheckedIn     bool       `json:"checked_in"`
	RSVPAt        *time.Time `json:"rsvp_datetime,omitempty"`
	IsFirstEvent  bool       `json:"is_first_event"`
	InviteTokenID int64      `json:"invite_token_id"`
}

// CheckedInEvent is one entry of a person's checked-in history.
type CheckedInEvent struct {
	EventID  int64      `db:"event_id"`
	StartsAt *time.Time `db:"start_datetime"`
}

// AttendanceRepository defines the interface for attendance storage
type AttendanceRepository interface {
	// Insert stores the row unless the (person, event) pair already exists and reports whether
	// a row was written.
	Insert(ctx context.Context, a *Attendance) (bool, error)
	// ListCheckedInEvents returns the person's checked-in events, earliest start first.
	// Events without a start time come last; ties are broken by event id.
	ListCheckedInEvents(ctx context.Context, personID int64) ([]CheckedInEvent, error)
	// MarkFirstEvent sets is_first_event on the given event and clears it everywhere else
	// for the person.
	MarkFirstEvent(ctx context.Context, personID, eventID int64) error
}
