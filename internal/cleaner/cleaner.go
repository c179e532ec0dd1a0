// Package cleaner derives numeric fields from raw sales records. It never
// drops or mutates rows; status-based exclusion is left to the caller.
package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

// Record is a sales record with its derived numeric fields.
type Record struct {
	sales.Record

	QuantityValue float64
	QuantityValid bool
	RateValue     float64
	Date          time.Time
	HasDate       bool
}

// Revenue is quantity times rate. It is computed on every call.
func (r Record) Revenue() float64 {
	return r.QuantityValue * r.RateValue
}

// garbageQuantities are placeholder tokens seen in the quantity field that
// must never be read as numbers.
var garbageQuantities = map[string]bool{
	"g": true, "tyy": true, "fhy": true, "something": true, "rbi": true,
	"ftg": true, "h": true, "gfh": true, "nm": true, "mxm": true,
}

var quantityPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Clean derives numeric fields for every row, preserving order.
func Clean(rows []sales.Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		q, ok := ParseQuantity(string(r.Quantity))
		d, hasDate := ParseDate(r.Date)
		out[i] = Record{
			Record:        r,
			QuantityValue: q,
			QuantityValid: ok,
			RateValue:     ParseRate(string(r.Rate)),
			Date:          d,
			HasDate:       hasDate,
		}
	}
	return out
}

// ParseQuantity extracts the first number from a free-text quantity such as
// "1,200 mtr". Garbage tokens and text without digits yield (0, false).
func ParseQuantity(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || garbageQuantities[s] {
		return 0, false
	}
	m := quantityPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRate coerces a rate to a number. Anything invalid is zero.
func ParseRate(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

var dateLayouts = []string{
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
}

// ParseDate parses a dataset date. Plain dates and ISO-8601 timestamps map
// to the calendar date as written, regardless of any zone offset.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
