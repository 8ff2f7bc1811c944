package services

import "attendanceingest/internal/domain"

// ImportConfig carries the tunables of an import run. The zero value is not usable; start from
// DefaultImportConfig.
type ImportConfig struct {
	// CommitInterval is the number of rows between partial commits.
	CommitInterval int
	// RefreshInterval is the number of rows between forced session refreshes. A refresh also
	// commits, so it takes the place of a partial commit on the same row.
	RefreshInterval int
	// FuzzyShortlist is the minimum averaged name ratio for a candidate to be considered.
	FuzzyShortlist float64
	// FuzzyAccept is the minimum ratio the best candidate needs to be taken as a match.
	FuzzyAccept float64
	// ReferralThreshold is the minimum ratio for tracking-link name matches.
	ReferralThreshold float64
	// LogPeople logs one line per processed row.
	LogPeople bool
}

func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		CommitInterval:    10,
		RefreshInterval:   50,
		FuzzyShortlist:    0.80,
		FuzzyAccept:       0.90,
		ReferralThreshold: 0.80,
	}
}

func (c ImportConfig) validate() error {
	if c.CommitInterval <= 0 || c.RefreshInterval <= 0 {
		return domain.ErrInvalidInput
	}
	if c.FuzzyShortlist <= 0 || c.FuzzyAccept < c.FuzzyShortlist || c.FuzzyAccept > 1 {
		return domain.ErrInvalidInput
	}
	if c.ReferralThreshold <= 0 || c.ReferralThreshold > 1 {
		return domain.ErrInvalidInput
	}
	return nil
}
