package domain

import "time"

// RegistrationRow is one raw row of an export, mapped from external column names at the table
// boundary. An empty string means the cell was blank or the column was missing.
type RegistrationRow struct {
	Line           int
	FirstName      string
	LastName       string
	Email          string
	SchoolEmail    string
	Phone          string
	OrderStatus    string
	TicketsScanned string
	OrderDateTime  string
	TrackingLink   string
	Gender         string
	School         string
	ClassYear      string
	Referral       string
}

// NormalizedRow is a RegistrationRow after every field went through the normalizer.
type NormalizedRow struct {
	Line          int
	FirstName     string
	LastName      string
	SchoolEmail   *string
	PersonalEmail *string
	// PrimaryEmail is the address school inference ran against. Empty when the row had none.
	PrimaryEmail string
	Phone        *string
	Gender       Gender
	School       School
	ClassYear    *int
	RSVP         bool
	Approved     bool
	CheckedIn    bool
	RSVPAt       *time.Time
	TrackingLink string
	Referral     string
}

// HasFullName reports whether both name parts are known.
func (r NormalizedRow) HasFullName() bool {
	return r.FirstName != "" && r.LastName != ""
}

// Contact returns the row's contact fields as a fill-only update.
func (r NormalizedRow) Contact() ContactUpdate {
	return ContactUpdate{
		SchoolEmail:   r.SchoolEmail,
		PersonalEmail: r.PersonalEmail,
		PhoneNumber:   r.Phone,
	}
}
