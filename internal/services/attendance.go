package services

import (
	"context"
	"fmt"

	"attendanceingest/internal/domain"
)

// AttendanceRecorder writes attendance facts and keeps the derived first-event flag and
// counters consistent with them.
type AttendanceRecorder struct {
	attendance domain.AttendanceRepository
	people     domain.PersonRepository
	events     domain.EventRepository
}

func NewAttendanceRecorder(attendance domain.AttendanceRepository, people domain.PersonRepository, events domain.EventRepository) *AttendanceRecorder {
	return &AttendanceRecorder{attendance: attendance, people: people, events: events}
}

// Record inserts the attendance unless the person already has a row for the event. A checked-in
// row triggers a full first-event recomputation for the person either way.
func (r *AttendanceRecorder) Record(ctx context.Context, a *domain.Attendance) (bool, error) {
	a.IsFirstEvent = false
	inserted, err := r.attendance.Insert(ctx, a)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	if a.CheckedIn {
		if err := r.RecomputeFirstEvent(ctx, a.PersonID); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

// RecomputeFirstEvent flags the person's earliest checked-in event as their first and clears
// the flag on every other row of theirs.
func (r *AttendanceRecorder) RecomputeFirstEvent(ctx context.Context, personID int64) error {
	history, err := r.attendance.ListCheckedInEvents(ctx, personID)
	if err != nil {
		return fmt.Errorf("list checked-in events: %w", err)
	}
	if len(history) == 0 {
		return nil
	}
	if err := r.attendance.MarkFirstEvent(ctx, personID, history[0].EventID); err != nil {
		return fmt.Errorf("mark first event: %w", err)
	}
	return nil
}

// Finalize recomputes the event's attendance and the lifetime attendance count of everyone with
// a row for the event.
func (r *AttendanceRecorder) Finalize(ctx context.Context, eventID int64) (eventAttendance, peopleRecounted int, err error) {
	eventAttendance, err = r.events.RecountAttendance(ctx, eventID)
	if err != nil {
		return 0, 0, fmt.Errorf("recount event attendance: %w", err)
	}
	peopleRecounted, err = r.people.RecountAttendance(ctx, eventID)
	if err != nil {
		return 0, 0, fmt.Errorf("recount person attendance: %w", err)
	}
	return eventAttendance, peopleRecounted, nil
}
