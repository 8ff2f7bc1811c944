package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"attendanceingest/internal/domain"
)

type attendanceRepository struct {
	DB DBTX
}

// NewAttendanceRepository returns a domain.AttendanceRepository implemented with Postgres.
func NewAttendanceRepository(db DBTX) domain.AttendanceRepository {
	return &attendanceRepository{DB: db}
}

func (r *attendanceRepository) Insert(ctx context.Context, a *domain.Attendance) (bool, error) {
	query := `
		INSERT INTO attendance (person_id, event_id, rsvp, approved, checked_in, rsvp_datetime, is_first_event, invite_token_id)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (person_id, event_id) DO NOTHING
	`
	result, err := r.DB.ExecContext(ctx, query,
		a.PersonID, a.EventID, a.RSVP, a.Approved, a.CheckedIn, a.RSVPAt, a.InviteTokenID,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *attendanceRepository) ListCheckedInEvents(ctx context.Context, personID int64) ([]domain.CheckedInEvent, error) {
	query := `
		SELECT a.event_id, e.start_datetime
		FROM attendance a
		JOIN events e ON e.id = a.event_id
		WHERE a.person_id = $1 AND a.checked_in = TRUE
		ORDER BY e.start_datetime ASC NULLS LAST, a.event_id ASC
	`
	var out []domain.CheckedInEvent
	if err := sqlx.SelectContext(ctx, r.DB, &out, query, personID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attendanceRepository) MarkFirstEvent(ctx context.Context, personID, eventID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE attendance SET is_first_event = (event_id = $2) WHERE person_id = $1`,
		personID, eventID,
	)
	return err
}
