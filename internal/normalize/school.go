package normalize

import (
	"strings"

	"attendanceingest/internal/domain"
)

// School infers the school. A school email decides on its own; the free-text answer is only
// consulted when the email says nothing.
func School(rawSchool, email string) domain.School {
	if s, ok := schoolFromEmail(email); ok {
		return s
	}
	v := strings.ToLower(strings.TrimSpace(rawSchool))
	switch {
	case v == "":
		return domain.SchoolUnknown
	case strings.Contains(v, "harvard"):
		if strings.Contains(v, "business") || strings.Contains(v, "hbs") {
			return domain.SchoolOther
		}
		return domain.SchoolHarvard
	case strings.Contains(v, "mit"):
		return domain.SchoolMIT
	default:
		return domain.SchoolOther
	}
}

func schoolFromEmail(email string) (domain.School, bool) {
	v := strings.ToLower(strings.TrimSpace(email))
	switch {
	case v == "":
		return domain.SchoolUnknown, false
	case strings.Contains(v, "@harvard.edu"), strings.Contains(v, "@college.harvard.edu"):
		return domain.SchoolHarvard, true
	case strings.Contains(v, "@mit.edu"):
		return domain.SchoolMIT, true
	case IsSchoolEmail(v):
		return domain.SchoolOther, true
	}
	return domain.SchoolUnknown, false
}

// IsSchoolEmail reports whether an address belongs to an academic domain.
func IsSchoolEmail(email string) bool {
	return strings.Contains(strings.ToLower(email), ".edu")
}

// SplitEmails decides which address is the school one and which the personal one. The school
// column wins as primary address when present; a primary address on an academic domain becomes
// the school email and the general email is kept as personal when it differs from it.
// Otherwise the primary address is personal and there is no school email.
func SplitEmails(email, schoolEmail string) (school, personal *string, primary string) {
	email = strings.TrimSpace(email)
	schoolEmail = strings.TrimSpace(schoolEmail)

	primary = schoolEmail
	if primary == "" {
		primary = email
	}
	if primary == "" {
		return nil, nil, ""
	}
	if !IsSchoolEmail(primary) {
		p := primary
		return nil, &p, primary
	}
	s := primary
	if email != "" && !strings.EqualFold(email, s) {
		p := email
		return &s, &p, primary
	}
	return &s, nil, primary
}
