package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportRequest is one event's table handed to the importer.
type ImportRequest struct {
	EventID   int64
	EventName string
	// Source names where the rows came from, for logs only.
	Source string
	Rows   []RegistrationRow
}

// ClassBreakdown splits checked-in attendees of the run by class year against the event's
// underclass cutoff year.
type ClassBreakdown struct {
	CutoffYear int `json:"cutoff_year"`
	Underclass int `json:"underclass"`
	Upperclass int `json:"upperclass"`
	Unknown    int `json:"unknown"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	RunID              uuid.UUID      `json:"run_id"`
	EventID            int64          `json:"event_id"`
	EventName          string         `json:"event_name"`
	Processed          int            `json:"processed"`
	NewPeople          int            `json:"new_people"`
	NewContacts        int            `json:"new_contacts"`
	NamesUpdated       int            `json:"names_updated"`
	AttendanceInserted int            `json:"attendance_inserted"`
	AttendanceExisting int            `json:"attendance_existing"`
	CheckedIn          int            `json:"checked_in"`
	ReferralsCredited  int            `json:"referrals_credited"`
	EventAttendance    int            `json:"event_attendance"`
	PeopleRecounted    int            `json:"people_recounted"`
	Commits            int            `json:"commits"`
	Refreshes          int            `json:"refreshes"`
	Reconnects         int            `json:"reconnects"`
	MatchedBy          map[string]int `json:"matched_by"`
	Classes            ClassBreakdown `json:"classes"`
	StartedAt          time.Time      `json:"started_at"`
	Duration           time.Duration  `json:"duration"`
}

// AttendanceRecords is the number of rows that resolved to an attendance record, new or not.
func (r *ImportResult) AttendanceRecords() int {
	return r.AttendanceInserted + r.AttendanceExisting
}

// Importer runs one event's rows through resolution, recording and attribution.
type Importer interface {
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)
}
