package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"attendanceingest/internal/domain"
	"attendanceingest/internal/similarity"
)

// MatchStrategy names the cascade step that produced a match.
type MatchStrategy string

const (
	MatchEmail     MatchStrategy = "email"
	MatchPhone     MatchStrategy = "phone"
	MatchExactName MatchStrategy = "exact_name"
	MatchFuzzyName MatchStrategy = "fuzzy_name"
	MatchNone      MatchStrategy = "none"
)

// Match is the outcome of resolving a row. PersonID is zero when nothing matched.
type Match struct {
	PersonID   int64
	Strategy   MatchStrategy
	Confidence float64
}

// Found reports whether the row resolved to an existing person.
func (m Match) Found() bool {
	return m.PersonID != 0
}

var noMatch = Match{Strategy: MatchNone}

// RatioFunc scores two lowercased strings in [0, 1].
type RatioFunc func(a, b string) float64

// Matcher resolves normalized rows to existing people. It never writes.
type Matcher struct {
	people    domain.PersonRepository
	ratio     RatioFunc
	shortlist float64
	accept    float64
	logger    *slog.Logger
}

func NewMatcher(people domain.PersonRepository, cfg ImportConfig, logger *slog.Logger) *Matcher {
	return &Matcher{
		people:    people,
		ratio:     similarity.Ratio,
		shortlist: cfg.FuzzyShortlist,
		accept:    cfg.FuzzyAccept,
		logger:    logger,
	}
}

// Resolve runs the cascade email, phone, exact name, fuzzy name. The first step that finds a
// person wins and later steps are not consulted.
func (m *Matcher) Resolve(ctx context.Context, row domain.NormalizedRow) (Match, error) {
	for _, email := range []*string{row.SchoolEmail, row.PersonalEmail} {
		if email == nil {
			continue
		}
		id, err := m.people.FindIDByEmail(ctx, *email)
		if err == nil {
			return Match{PersonID: id, Strategy: MatchEmail, Confidence: 1}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return Match{}, fmt.Errorf("match by email: %w", err)
		}
	}

	if row.Phone != nil {
		id, err := m.people.FindIDByPhone(ctx, *row.Phone)
		if err == nil {
			return Match{PersonID: id, Strategy: MatchPhone, Confidence: 1}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return Match{}, fmt.Errorf("match by phone: %w", err)
		}
	}

	if !row.HasFullName() {
		return noMatch, nil
	}
	return m.MatchName(ctx, row.FirstName, row.LastName)
}

// MatchName tries an exact case-insensitive name match and then a fuzzy one. Both parts must
// be known.
func (m *Matcher) MatchName(ctx context.Context, firstName, lastName string) (Match, error) {
	if firstName == "" || lastName == "" {
		return noMatch, nil
	}

	exact, err := m.people.FindByExactName(ctx, firstName, lastName)
	if err != nil {
		return Match{}, fmt.Errorf("match by exact name: %w", err)
	}
	if len(exact) > 0 {
		if len(exact) > 1 {
			m.logger.Warn("several people share this name, using the lowest id",
				"first_name", firstName, "last_name", lastName, "candidates", len(exact), "person_id", exact[0].ID)
		}
		return Match{PersonID: exact[0].ID, Strategy: MatchExactName, Confidence: 1}, nil
	}

	match, err := m.fuzzyName(ctx, firstName, lastName)
	if err != nil {
		return Match{}, fmt.Errorf("match by fuzzy name: %w", err)
	}
	return match, nil
}

type fuzzyCandidate struct {
	person domain.PersonName
	ratio  float64
}

// fuzzyName accepts the top shortlisted candidate only at or above the accept threshold.
func (m *Matcher) fuzzyName(ctx context.Context, firstName, lastName string) (Match, error) {
	shortlist, err := m.shortlistNames(ctx, firstName, lastName)
	if err != nil {
		return Match{}, err
	}
	if len(shortlist) == 0 {
		return noMatch, nil
	}

	best := shortlist[0]
	if best.ratio < m.accept {
		m.logger.Debug("fuzzy candidate below acceptance",
			"first_name", firstName, "last_name", lastName, "candidate_id", best.person.ID, "ratio", best.ratio)
		return noMatch, nil
	}
	m.logger.Info("fuzzy matched name",
		"first_name", firstName, "last_name", lastName,
		"matched_first_name", best.person.FirstName, "matched_last_name", best.person.LastName,
		"person_id", best.person.ID, "ratio", best.ratio)
	return Match{PersonID: best.person.ID, Strategy: MatchFuzzyName, Confidence: best.ratio}, nil
}

// shortlistNames scores every person by the mean of the first- and last-name ratios and keeps
// those at or above the shortlist threshold, best first. Equal ratios keep id order.
func (m *Matcher) shortlistNames(ctx context.Context, firstName, lastName string) ([]fuzzyCandidate, error) {
	people, err := m.people.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	first := strings.ToLower(firstName)
	last := strings.ToLower(lastName)

	var shortlist []fuzzyCandidate
	for _, p := range people {
		ratio := (m.ratio(first, strings.ToLower(p.FirstName)) + m.ratio(last, strings.ToLower(p.LastName))) / 2
		if ratio >= m.shortlist {
			shortlist = append(shortlist, fuzzyCandidate{person: p, ratio: ratio})
		}
	}
	sort.SliceStable(shortlist, func(i, j int) bool {
		return shortlist[i].ratio > shortlist[j].ratio
	})
	return shortlist, nil
}
