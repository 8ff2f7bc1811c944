package postgres

import (
	"context"
	"database/sql"
	"errors"

	"attendanceingest/internal/domain"
)

type eventRepository struct {
	DB DBTX
}

func NewEventRepository(db DBTX) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	query := `
		SELECT id, COALESCE(event_name, ''), start_datetime, attendance
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var startNull sql.NullTime
	var attendanceNull sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &startNull, &attendanceNull)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if startNull.Valid {
		e.StartsAt = &startNull.Time
	}
	if attendanceNull.Valid {
		e.Attendance = int(attendanceNull.Int64)
	}
	return e, nil
}

func (r *eventRepository) RecountAttendance(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE events
		SET attendance = (
			SELECT COUNT(*)
			FROM attendance
			WHERE event_id = $1 AND checked_in = TRUE
		)
		WHERE id = $1
		RETURNING attendance
	`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}
