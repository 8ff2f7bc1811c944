package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"attendanceingest/internal/domain"
	"attendanceingest/internal/normalize"
	"attendanceingest/internal/similarity"
)

// nonPersonalLinkCodes are tracking values that never name a referrer.
var nonPersonalLinkCodes = map[string]struct{}{
	"default":             {},
	"emailreferral":       {},
	"email_first_button":  {},
	"email_second_button": {},
	"email":               {},
	"txt":                 {},
	"insta":               {},
	"maillist":            {},
	"lastname":            {},
	"[name]":              {},
	"instagram":           {},
	"facebook":            {},
}

// ReferralSource says which signal named the referrer.
type ReferralSource string

const (
	ReferralFromLink   ReferralSource = "tracking_link"
	ReferralFromColumn ReferralSource = "referral_column"
)

// Referral is a resolved referrer for one row.
type Referral struct {
	ReferrerID int64
	Source     ReferralSource
	Credited   bool
}

// ReferralAttributor credits people who brought in checked-in attendees. Credit is an
// increment, so importing the same rows twice credits twice.
type ReferralAttributor struct {
	people    domain.PersonRepository
	matcher   *Matcher
	ratio     RatioFunc
	threshold float64
	logger    *slog.Logger
}

func NewReferralAttributor(people domain.PersonRepository, matcher *Matcher, cfg ImportConfig, logger *slog.Logger) *ReferralAttributor {
	return &ReferralAttributor{
		people:    people,
		matcher:   matcher,
		ratio:     similarity.Ratio,
		threshold: cfg.ReferralThreshold,
		logger:    logger,
	}
}

// Attribute finds the referrer of a checked-in row and increments their referral count unless
// they are the attendee. Rows that are not checked in are ignored.
func (a *ReferralAttributor) Attribute(ctx context.Context, attendeeID int64, row domain.NormalizedRow) (Referral, error) {
	if !row.CheckedIn {
		return Referral{}, nil
	}
	ref, err := a.FindReferrer(ctx, row)
	if err != nil {
		return Referral{}, err
	}
	if ref.ReferrerID == 0 {
		return ref, nil
	}
	if ref.ReferrerID == attendeeID {
		a.logger.Debug("ignoring self-referral", "person_id", attendeeID, "source", ref.Source)
		return ref, nil
	}
	if err := a.people.IncrementReferralCount(ctx, ref.ReferrerID); err != nil {
		return Referral{}, fmt.Errorf("credit referrer %d: %w", ref.ReferrerID, err)
	}
	ref.Credited = true
	a.logger.Info("credited referral", "referrer_id", ref.ReferrerID, "attendee_id", attendeeID, "source", ref.Source)
	return ref, nil
}

// FindReferrer resolves the tracking link and the referral column. A referral column that
// matches someone overrides the tracking link.
func (a *ReferralAttributor) FindReferrer(ctx context.Context, row domain.NormalizedRow) (Referral, error) {
	var ref Referral
	if row.TrackingLink != "" {
		id, err := a.matchLink(ctx, row.TrackingLink)
		if err != nil {
			return Referral{}, fmt.Errorf("match tracking link: %w", err)
		}
		if id != 0 {
			ref = Referral{ReferrerID: id, Source: ReferralFromLink}
		}
	}
	if row.Referral != "" {
		id, err := a.matchReferralColumn(ctx, row.Referral)
		if err != nil {
			return Referral{}, fmt.Errorf("match referral column: %w", err)
		}
		if id != 0 {
			ref = Referral{ReferrerID: id, Source: ReferralFromColumn}
		}
	}
	return ref, nil
}

// matchLink matches a tracking value against first names, and against last names as well when
// the value is several words joined by "_" or "-". Exact matches win in id order; otherwise the
// best fuzzy ratio at or above the threshold wins, keeping the earliest person on ties.
func (a *ReferralAttributor) matchLink(ctx context.Context, raw string) (int64, error) {
	link := strings.ToLower(strings.TrimSpace(raw))
	if link == "" {
		return 0, nil
	}
	if _, ok := nonPersonalLinkCodes[link]; ok {
		return 0, nil
	}
	singleWord := !strings.ContainsAny(link, "_-")
	name := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(link))
	return a.matchFirstOrLast(ctx, name, !singleWord)
}

func (a *ReferralAttributor) matchFirstOrLast(ctx context.Context, name string, withLastName bool) (int64, error) {
	people, err := a.people.ListNames(ctx)
	if err != nil {
		return 0, err
	}

	for _, p := range people {
		if name == strings.ToLower(p.FirstName) {
			return p.ID, nil
		}
		if withLastName && name == strings.ToLower(p.LastName) {
			return p.ID, nil
		}
	}

	var best int64
	var bestRatio float64
	for _, p := range people {
		if first := strings.ToLower(p.FirstName); first != "" {
			if r := a.ratio(name, first); r >= a.threshold && r > bestRatio {
				best, bestRatio = p.ID, r
			}
		}
		if last := strings.ToLower(p.LastName); withLastName && last != "" {
			if r := a.ratio(name, last); r >= a.threshold && r > bestRatio {
				best, bestRatio = p.ID, r
			}
		}
	}
	return best, nil
}

// matchReferralColumn resolves a free-text referrer. Two or more words are treated as first
// name and last name and go through the name matcher; a single word is matched like a
// single-word tracking link.
func (a *ReferralAttributor) matchReferralColumn(ctx context.Context, raw string) (int64, error) {
	words := strings.Fields(raw)
	switch len(words) {
	case 0:
		return 0, nil
	case 1:
		word := strings.ToLower(words[0])
		if _, ok := nonPersonalLinkCodes[word]; ok {
			return 0, nil
		}
		return a.matchFirstOrLast(ctx, word, false)
	}
	first := normalize.Name(words[0])
	last := normalize.Name(strings.Join(words[1:], " "))
	m, err := a.matcher.MatchName(ctx, first, last)
	if err != nil {
		return 0, err
	}
	return m.PersonID, nil
}
