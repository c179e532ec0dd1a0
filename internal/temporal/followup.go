package temporal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bonly in (\w+)`),
	regexp.MustCompile(`(?i)\bin (\w+) month\b`),
	regexp.MustCompile(`(?i)\bfor (\w+)`),
	regexp.MustCompile(`(?i)\bduring (\w+)`),
	regexp.MustCompile(`(?i)\bwithin (\w+)`),
}

// ParseFollowUp recognises an explicit temporal follow-up filter such as
// "only in June" or "during 2025". It reports false when the phrasing is
// present but names no date, month or year.
func ParseFollowUp(question string) (Scope, bool) {
	for _, p := range followUpPatterns {
		if p.MatchString(question) {
			s := Parse(question)
			return s, !s.IsZero()
		}
	}
	return Scope{}, false
}

var stripPattern = regexp.MustCompile(`(?i)\b(?:(?:only\s+)?(?:in|for|during|within|on|of)\s+)?(?:\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4}|(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)(?:\s+month)?|20\d{2})\b`)

// Strip removes every temporal phrase from question, along with the
// preposition that introduces it.
func Strip(question string) string {
	return strings.Join(strings.Fields(stripPattern.ReplaceAllString(question, " ")), " ")
}

var currentMonthPattern = regexp.MustCompile(`(?i)\b(?:current|this)\s+month\b`)

// ReplaceCurrentMonth rewrites "current month" and "this month" into the
// month and year of now.
func ReplaceCurrentMonth(question string, now time.Time) string {
	return currentMonthPattern.ReplaceAllString(question, fmt.Sprintf("%s %d", now.Month(), now.Year()))
}
