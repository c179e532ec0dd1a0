package prediction

import (
	"regexp"
	"time"

	"github.com/ziadkadry99/salesiq/internal/temporal"
)

var (
	nextMonthPattern = regexp.MustCompile(`(?i)\bnext\s+month\b`)
	nextYearPattern  = regexp.MustCompile(`(?i)\bnext\s+year\b`)
)

// ExtractTarget reads the month to forecast from question. yearly is set
// when only a year is named, in which case target is January of that year.
//
// "next month" and "next year" are relative to now. A month without a year
// is its next occurrence after latest. With nothing named the target is the
// month after latest, or after now when there is no history.
func ExtractTarget(question string, latest, now time.Time) (target time.Time, yearly bool) {
	anchor := latest
	if anchor.IsZero() {
		anchor = now
	}
	anchor = MonthStart(anchor)

	switch {
	case nextMonthPattern.MatchString(question):
		return MonthStart(now).AddDate(0, 1, 0), false
	case nextYearPattern.MatchString(question):
		return time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	s := temporal.Parse(question)
	switch s.Kind {
	case temporal.KindDate:
		return MonthStart(s.Date), false
	case temporal.KindMonth:
		if s.Year != 0 {
			return time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC), false
		}
		year := anchor.Year()
		if s.Month <= anchor.Month() {
			year++
		}
		return time.Date(year, s.Month, 1, 0, 0, 0, 0, time.UTC), false
	case temporal.KindYear:
		return time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return anchor.AddDate(0, 1, 0), false
}
