// Package temporal extracts a single date, month or year scope from a question
// and narrows cleaned rows to it.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
)

// Kind identifies the granularity of a Scope.
type Kind string

const (
	KindNone  Kind = ""
	KindDate  Kind = "date"
	KindMonth Kind = "month"
	KindYear  Kind = "year"
)

// Scope is the temporal constraint found in a question. For KindMonth a zero
// Year means the month in any year.
type Scope struct {
	Kind  Kind       `json:"kind,omitempty"`
	Date  time.Time  `json:"date,omitempty"`
	Month time.Month `json:"month,omitempty"`
	Year  int        `json:"year,omitempty"`
	Label string     `json:"label,omitempty"`
}

// IsZero reports whether no temporal constraint was found.
func (s Scope) IsZero() bool { return s.Kind == KindNone }

// Contains reports whether the calendar date t falls inside the scope.
func (s Scope) Contains(t time.Time) bool {
	switch s.Kind {
	case KindDate:
		return t.Year() == s.Date.Year() && t.Month() == s.Date.Month() && t.Day() == s.Date.Day()
	case KindMonth:
		return t.Month() == s.Month && (s.Year == 0 || t.Year() == s.Year)
	case KindYear:
		return t.Year() == s.Year
	}
	return true
}

var (
	ymdPattern   = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	dmyPattern   = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4})\b`)
	yearPattern  = regexp.MustCompile(`\b(20\d{2})\b`)
	monthPattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\b`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Parse returns the first temporal scope in question, in priority order:
// explicit numeric dates, month names, then bare years.
func Parse(question string) Scope {
	if d, ok := parseNumericDate(question); ok {
		return Scope{Kind: KindDate, Date: d, Label: "on " + d.Format("January 02, 2006")}
	}
	if loc := monthPattern.FindStringSubmatchIndex(question); loc != nil {
		m := monthNames[strings.ToLower(question[loc[2]:loc[3]])]
		s := Scope{Kind: KindMonth, Month: m, Label: "in " + m.String()}
		if y, ok := findYear(question); ok {
			s.Year = y
			s.Label = fmt.Sprintf("in %s %d", m, y)
		}
		return s
	}
	if y, ok := findYear(question); ok {
		return Scope{Kind: KindYear, Year: y, Label: fmt.Sprintf("in %d", y)}
	}
	return Scope{}
}

// MonthOf returns the first month named in question, if any.
func MonthOf(question string) (time.Month, bool) {
	m := monthPattern.FindStringSubmatch(question)
	if m == nil {
		return 0, false
	}
	return monthNames[strings.ToLower(m[1])], true
}

// YearOf returns the first 20xx year in question, if any.
func YearOf(question string) (int, bool) {
	return findYear(question)
}

func findYear(question string) (int, bool) {
	m := yearPattern.FindStringSubmatch(question)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// parseNumericDate tries Y-M-D, then D-M-Y, then M-D-Y. Day-first wins when
// both readings are valid.
func parseNumericDate(question string) (time.Time, bool) {
	if m := ymdPattern.FindStringSubmatch(question); m != nil {
		if d, ok := validDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := dmyPattern.FindStringSubmatch(question); m != nil {
		if d, ok := validDate(m[3], m[2], m[1]); ok {
			return d, true
		}
		if d, ok := validDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func validDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// Filter narrows rows to the scope found in question. Rows without a
// parseable date never match a non-empty scope. An empty result is returned
// as-is together with its label.
func Filter(rows []cleaner.Record, question string) ([]cleaner.Record, Scope) {
	s := Parse(question)
	return Apply(rows, s), s
}

// Apply narrows rows to s.
func Apply(rows []cleaner.Record, s Scope) []cleaner.Record {
	if s.IsZero() {
		return rows
	}
	out := make([]cleaner.Record, 0, len(rows))
	for _, r := range rows {
		if r.HasDate && s.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}
