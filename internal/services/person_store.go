package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"attendanceingest/internal/domain"
)

// PersonResolution is what happened to the person behind one row.
type PersonResolution struct {
	PersonID       int64
	Created        bool
	ContactUpdated bool
	NamesUpdated   bool
	Match          Match
}

// PersonStore creates people and folds new information into existing ones without ever
// overwriting a present contact field.
type PersonStore struct {
	people  domain.PersonRepository
	matcher *Matcher
	logger  *slog.Logger
}

func NewPersonStore(people domain.PersonRepository, matcher *Matcher, logger *slog.Logger) *PersonStore {
	return &PersonStore{people: people, matcher: matcher, logger: logger}
}

// Resolve matches the row to a person, creating one when nothing matches, then merges the
// row's contact fields. Names are reconciled only for people that already existed.
func (s *PersonStore) Resolve(ctx context.Context, row domain.NormalizedRow) (PersonResolution, error) {
	match, err := s.matcher.Resolve(ctx, row)
	if err != nil {
		return PersonResolution{}, err
	}
	res := PersonResolution{PersonID: match.PersonID, Match: match}

	var person *domain.Person
	if match.Found() {
		person, err = s.people.GetByID(ctx, match.PersonID)
		if err != nil {
			return PersonResolution{}, fmt.Errorf("get matched person %d: %w", match.PersonID, err)
		}
	} else {
		person, err = s.Create(ctx, row)
		if err != nil {
			return PersonResolution{}, err
		}
		res.PersonID = person.ID
		res.Created = true
	}

	res.ContactUpdated, err = s.MergeContact(ctx, person, row)
	if err != nil {
		return PersonResolution{}, err
	}
	if !res.Created {
		res.NamesUpdated, err = s.ReconcileNames(ctx, person, row)
		if err != nil {
			return PersonResolution{}, err
		}
	}
	return res, nil
}

// Create inserts a person from the row's identity fields. Contact fields are left for
// MergeContact and preferred_name is never set.
func (s *PersonStore) Create(ctx context.Context, row domain.NormalizedRow) (*domain.Person, error) {
	p := &domain.Person{
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Gender:    row.Gender,
		School:    row.School,
		ClassYear: row.ClassYear,
	}
	if err := s.people.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	s.logger.Info("created person", "person_id", p.ID, "first_name", p.FirstName, "last_name", p.LastName)
	return p, nil
}

// MergeContact fills the person's empty contact fields from the row and reports whether any
// field gained a value. p is updated in place.
func (s *PersonStore) MergeContact(ctx context.Context, p *domain.Person, row domain.NormalizedRow) (bool, error) {
	var fill domain.ContactUpdate
	if p.SchoolEmail == nil && row.SchoolEmail != nil {
		fill.SchoolEmail = row.SchoolEmail
	}
	if p.PersonalEmail == nil && row.PersonalEmail != nil {
		fill.PersonalEmail = row.PersonalEmail
	}
	if p.PhoneNumber == nil && row.Phone != nil {
		fill.PhoneNumber = row.Phone
	}
	if fill.Empty() {
		return false, nil
	}
	if err := s.people.FillContact(ctx, p.ID, fill); err != nil {
		return false, fmt.Errorf("merge contact of person %d: %w", p.ID, err)
	}
	if fill.SchoolEmail != nil {
		p.SchoolEmail = fill.SchoolEmail
	}
	if fill.PersonalEmail != nil {
		p.PersonalEmail = fill.PersonalEmail
	}
	if fill.PhoneNumber != nil {
		p.PhoneNumber = fill.PhoneNumber
	}
	return true, nil
}

// ReconcileNames upgrades a stored name part to the incoming one when either contains the
// other and the incoming one is longer, so "Ben" becomes "Benjamin". The last name is only
// considered when both sides have one.
func (s *PersonStore) ReconcileNames(ctx context.Context, p *domain.Person, row domain.NormalizedRow) (bool, error) {
	if !row.HasFullName() {
		return false, nil
	}
	var u domain.NameUpdate
	if v, ok := longerContaining(p.FirstName, row.FirstName); ok {
		u.FirstName = &v
	}
	if p.LastName != "" {
		if v, ok := longerContaining(p.LastName, row.LastName); ok {
			u.LastName = &v
		}
	}
	if u.Empty() {
		return false, nil
	}
	if err := s.people.UpdateNames(ctx, p.ID, u); err != nil {
		return false, fmt.Errorf("reconcile names of person %d: %w", p.ID, err)
	}
	s.logger.Info("updated person name", "person_id", p.ID,
		"from_first_name", p.FirstName, "from_last_name", p.LastName,
		"first_name", deref(u.FirstName, p.FirstName), "last_name", deref(u.LastName, p.LastName))
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	return true, nil
}

// longerContaining returns incoming when stored and incoming contain one another
// case-insensitively and incoming is strictly longer.
func longerContaining(stored, incoming string) (string, bool) {
	a, b := strings.ToLower(stored), strings.ToLower(incoming)
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return "", false
	}
	if utf8.RuneCountInString(incoming) <= utf8.RuneCountInString(stored) {
		return "", false
	}
	return incoming, true
}

func deref(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
