package domain

import "context"

// Gender is the normalized gender of a person. The zero value means unknown and is stored as NULL.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
)

// School is the normalized school of a person. The zero value means unknown and is stored as NULL.
type School string

const (
	SchoolUnknown School = ""
	SchoolHarvard School = "harvard"
	SchoolMIT     School = "mit"
	SchoolOther   School = "other"
)

// Person is the canonical identity record attendance rows resolve to.
type Person struct {
	ID                   int64   `json:"id"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	PreferredName        *string `json:"preferred_name,omitempty"`
	Gender               Gender  `json:"gender,omitempty"`
	School               School  `json:"school,omitempty"`
	ClassYear            *int    `json:"class_year,omitempty"`
	SchoolEmail          *string `json:"school_email,omitempty"`
	PersonalEmail        *string `json:"personal_email,omitempty"`
	PhoneNumber          *string `json:"phone_number,omitempty"`
	ReferralCount        int     `json:"referral_count"`
	EventAttendanceCount int     `json:"event_attendance_count"`
}

// PersonName is the projection used by name matching. Rows are always listed in id order.
type PersonName struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// ContactUpdate carries contact fields to fill on an existing person. A nil field is left untouched
// and a non-nil field only fills a column that is currently NULL.
type ContactUpdate struct {
	SchoolEmail   *string
	PersonalEmail *string
	PhoneNumber   *string
}

// Empty reports whether the update carries no field.
func (u ContactUpdate) Empty() bool {
	return u.SchoolEmail == nil && u.PersonalEmail == nil && u.PhoneNumber == nil
}

// NameUpdate is the closed set of name columns that may be rewritten on an existing person.
type NameUpdate struct {
	FirstName *string
	LastName  *string
}

// Empty reports whether the update carries no field.
func (u NameUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil
}

// PersonRepository defines the interface for person storage
type PersonRepository interface {
	Create(ctx context.Context, p *Person) error
	GetByID(ctx context.Context, id int64) (*Person, error)
	// FindIDByEmail matches against both school_email and personal_email, case-insensitively.
	FindIDByEmail(ctx context.Context, email string) (int64, error)
	FindIDByPhone(ctx context.Context, phone string) (int64, error)
	// FindByExactName returns every person whose first and last name equal the given ones
	// case-insensitively, in id order.
	FindByExactName(ctx context.Context, firstName, lastName string) ([]PersonName, error)
	ListNames(ctx context.Context) ([]PersonName, error)
	FillContact(ctx context.Context, id int64, u ContactUpdate) error
	UpdateNames(ctx context.Context, id int64, u NameUpdate) error
	IncrementReferralCount(ctx context.Context, id int64) error
	// RecountAttendance recomputes event_attendance_count for every person with an attendance
	// row for the event and returns how many people were updated.
	RecountAttendance(ctx context.Context, eventID int64) (int, error)
}
