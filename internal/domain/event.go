package domain

import (
	"context"
	"time"
)

// Event is owned by the surrounding system; the importer only reads it and maintains Attendance.
type Event struct {
	ID         int64      `json:"id"`
	Name       string     `json:"event_name"`
	StartsAt   *time.Time `json:"start_datetime,omitempty"`
	Attendance int        `json:"attendance"`
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*Event, error)
	// RecountAttendance sets events.attendance to the number of checked-in rows for the event
	// and returns the new value.
	RecountAttendance(ctx context.Context, id int64) (int, error)
}
