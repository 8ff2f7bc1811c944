package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendanceingest/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_Insert(t *testing.T) {
	ctx := context.Background()
	rsvpAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		attendance   *domain.Attendance
		mock         func(mock sqlmock.Sqlmock)
		wantInserted bool
		wantErr      bool
	}{
		{
			name: "new row",
			attendance: &domain.Attendance{
				PersonID: 1, EventID: 2, RSVP: true, Approved: true, CheckedIn: true, RSVPAt: &rsvpAt, InviteTokenID: 9,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO attendance .* ON CONFLICT \(person_id, event_id\) DO NOTHING`).
					WithArgs(int64(1), int64(2), true, true, true, rsvpAt, int64(9)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantInserted: true,
		},
		{
			name:       "existing pair is left alone",
			attendance: &domain.Attendance{PersonID: 1, EventID: 2, InviteTokenID: 9},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO attendance`).
					WithArgs(int64(1), int64(2), false, false, false, nil, int64(9)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantInserted: false,
		},
		{
			name:       "db error",
			attendance: &domain.Attendance{PersonID: 1, EventID: 2},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO attendance`).WillReturnError(errors.New("boom"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.mock(mock)
			inserted, err := NewAttendanceRepository(db).Insert(ctx, tt.attendance)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantInserted, inserted)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAttendanceRepository_ListCheckedInEvents(t *testing.T) {
	db, mock := newMockDB(t)
	first := time.Date(2024, 10, 1, 18, 0, 0, 0, time.UTC)
	second := time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`ORDER BY e.start_datetime ASC NULLS LAST, a.event_id ASC`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "start_datetime"}).
			AddRow(10, first).
			AddRow(12, second).
			AddRow(11, nil))

	got, err := NewAttendanceRepository(db).ListCheckedInEvents(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, []domain.CheckedInEvent{
		{EventID: 10, StartsAt: &first},
		{EventID: 12, StartsAt: &second},
		{EventID: 11},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_MarkFirstEvent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE attendance SET is_first_event = \(event_id = \$2\) WHERE person_id = \$1`).
		WithArgs(int64(4), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewAttendanceRepository(db).MarkFirstEvent(context.Background(), 4, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}
