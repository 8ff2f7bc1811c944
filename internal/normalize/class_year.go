package normalize

import (
	"strconv"
	"strings"
	"time"
)

// AcademicYearStartMonth anchors grade-keyword inference: from this month on, the current
// calendar year is the academic year.
const AcademicYearStartMonth = time.September

// UnderclassCutoffMonth anchors the underclass cutoff of an event. It is independent of
// AcademicYearStartMonth.
const UnderclassCutoffMonth = time.August

var gradeKeywords = []struct {
	words []string
	years int
}{
	{[]string{"freshman", "first", "1st"}, 4},
	{[]string{"sophomore", "second", "2nd"}, 3},
	{[]string{"junior", "third", "3rd"}, 2},
	{[]string{"senior", "fourth", "4th"}, 1},
}

// ClassYear parses a graduation year. Accepted forms are a bare 4-digit year, an apostrophe
// followed by two digits, or a grade keyword resolved against the academic year containing now.
func ClassYear(raw string, now time.Time) *int {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return nil
	}
	if len(v) == 4 && allDigits(v) {
		y, _ := strconv.Atoi(v)
		return &y
	}
	for _, quote := range []string{"'", "’"} {
		if rest, ok := strings.CutPrefix(v, quote); ok && len(rest) == 2 && allDigits(rest) {
			n, _ := strconv.Atoi(rest)
			y := 2000 + n
			return &y
		}
	}
	anchor := AcademicYear(now)
	for _, g := range gradeKeywords {
		for _, w := range g.words {
			if strings.Contains(v, w) {
				y := anchor + g.years
				return &y
			}
		}
	}
	return nil
}

// AcademicYear returns the calendar year the academic year containing t started in.
func AcademicYear(t time.Time) int {
	if t.Month() >= AcademicYearStartMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// UnderclassCutoffYear returns the class year at or below which an attendee of an event starting
// at t counts as an upperclassman.
func UnderclassCutoffYear(t time.Time) int {
	if t.Month() >= UnderclassCutoffMonth {
		return t.Year() + 2
	}
	return t.Year() + 1
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
