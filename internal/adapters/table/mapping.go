package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"attendanceingest/internal/domain"
)

// ColumnMapping names the external header that feeds each registration field. An empty
// header leaves the field blank.
type ColumnMapping struct {
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	Email          string `yaml:"email"`
	SchoolEmail    string `yaml:"school_email"`
	Phone          string `yaml:"phone"`
	OrderStatus    string `yaml:"approved"`
	TicketsScanned string `yaml:"checked_in"`
	OrderDateTime  string `yaml:"rsvp_datetime"`
	TrackingLink   string `yaml:"tracking_link"`
	Gender         string `yaml:"gender"`
	School         string `yaml:"school"`
	ClassYear      string `yaml:"class_year"`
	// ReferralColumns are tried in order; the first one present in the header is used.
	ReferralColumns []string `yaml:"referral_columns"`
}

// DefaultMapping is the header layout of the registration platform's guest export.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		FirstName:      "First Name",
		LastName:       "Last Name",
		Email:          "Email",
		SchoolEmail:    "What is your school email?",
		Phone:          "Phone Number",
		OrderStatus:    "Order Status",
		TicketsScanned: "Tickets Scanned",
		OrderDateTime:  "Order Date/Time",
		TrackingLink:   "Tracking Link",
		Gender:         "Detected Gender",
		School:         "What school do you go to?",
		ClassYear:      "What is your graduation year?",
		ReferralColumns: []string{
			"How did you hear about this event?",
			"Who referred you?",
			"Referral",
			"Referred by",
		},
	}
}

// LoadMapping reads a YAML override of the default mapping. Keys left out keep their default
// header; unknown keys are an error.
func LoadMapping(path string) (ColumnMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ColumnMapping{}, fmt.Errorf("read mapping: %w", err)
	}
	m := DefaultMapping()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return ColumnMapping{}, fmt.Errorf("parse mapping %s: %w: %w", path, domain.ErrInvalidInput, err)
	}
	return m, nil
}

// identityColumns returns the headers of which at least one must be present for a table to
// describe people at all.
func (m ColumnMapping) identityColumns() []string {
	var out []string
	for _, h := range []string{m.FirstName, m.LastName, m.Email, m.SchoolEmail, m.Phone} {
		if strings.TrimSpace(h) != "" {
			out = append(out, h)
		}
	}
	return out
}
