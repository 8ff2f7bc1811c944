// Package normalize turns raw registration cells into canonical values. Every function is pure
// and lenient: input it cannot interpret yields the unknown value, never an error.
package normalize

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"attendanceingest/internal/domain"
)

var (
	femaleValues = map[string]struct{}{"f": {}, "female": {}, "woman": {}, "girl": {}}
	maleValues   = map[string]struct{}{"m": {}, "male": {}, "man": {}, "boy": {}}

	checkedInValues = map[string]struct{}{"1": {}, "1.0": {}, "true": {}, "yes": {}}
)

const completedStatus = "completed"

// Gender maps a free-text gender to M, F or unknown. Only whole-value matches count.
func Gender(raw string) domain.Gender {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := femaleValues[v]; ok {
		return domain.GenderFemale
	}
	if _, ok := maleValues[v]; ok {
		return domain.GenderMale
	}
	return domain.GenderUnknown
}

// Name trims and title-cases a name part. An empty result means the name is unknown.
func Name(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	return cases.Title(language.English).String(v)
}

// Phone trims a phone number; blank yields nil. No other canonicalization is applied, so phone
// matching stays an exact comparison.
func Phone(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

// OrderStatus derives the rsvp and approved flags. Any status counts as an rsvp; only
// "completed" counts as approved.
func OrderStatus(raw string) (rsvp, approved bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return false, false
	}
	return true, strings.EqualFold(v, completedStatus)
}

// CheckedIn interprets a tickets-scanned cell.
func CheckedIn(raw string) bool {
	_, ok := checkedInValues[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Row normalizes every field of a registration row. now anchors class-year keyword inference.
func Row(raw domain.RegistrationRow, now time.Time) domain.NormalizedRow {
	schoolEmail, personalEmail, primary := SplitEmails(raw.Email, raw.SchoolEmail)
	rsvp, approved := OrderStatus(raw.OrderStatus)
	return domain.NormalizedRow{
		Line:          raw.Line,
		FirstName:     Name(raw.FirstName),
		LastName:      Name(raw.LastName),
		SchoolEmail:   schoolEmail,
		PersonalEmail: personalEmail,
		PrimaryEmail:  primary,
		Phone:         Phone(raw.Phone),
		Gender:        Gender(raw.Gender),
		School:        School(raw.School, primary),
		ClassYear:     ClassYear(raw.ClassYear, now),
		RSVP:          rsvp,
		Approved:      approved,
		CheckedIn:     CheckedIn(raw.TicketsScanned),
		RSVPAt:        RSVPTime(raw.OrderDateTime),
		TrackingLink:  strings.TrimSpace(raw.TrackingLink),
		Referral:      strings.TrimSpace(raw.Referral),
	}
}
