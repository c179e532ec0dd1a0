package aggregate

import (
	"fmt"
	"sort"
	"strings"
)

// Angle is an alternative analytical view offered when a question repeats.
type Angle string

const (
	AngleBookingTrends Angle = "booking-trends"
	AngleMargins       Angle = "margins"
	AngleTiming        Angle = "timing"
	AngleCustomerMix   Angle = "customer-mix"
)

// Angles is the rotation order for repeated questions.
var Angles = []Angle{AngleBookingTrends, AngleMargins, AngleTiming, AngleCustomerMix}

// Insight computes a short deterministic remark about details from angle.
// It returns an empty string when the details hold nothing to say.
func Insight(angle Angle, details []Detail, f Formatter) string {
	if len(details) == 0 {
		return ""
	}
	switch angle {
	case AngleBookingTrends:
		return bookingTrends(details, f)
	case AngleMargins:
		return margins(details, f)
	case AngleTiming:
		return timing(details, f)
	case AngleCustomerMix:
		return customerMix(details, f)
	}
	return ""
}

type tally struct {
	key   string
	count int
}

// top returns the tally with the highest count, ties broken by key.
func top(m map[string]*tally) (tally, int) {
	list := make([]tally, 0, len(m))
	for _, t := range m {
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	return list[0], len(list)
}

func bookingTrends(details []Detail, f Formatter) string {
	byDate := make(map[string]*tally)
	for _, d := range details {
		if d.Date == "" {
			continue
		}
		t, ok := byDate[d.Date]
		if !ok {
			t = &tally{key: d.Date}
			byDate[d.Date] = t
		}
		t.count++
	}
	if len(byDate) == 0 {
		return ""
	}
	busiest, days := top(byDate)
	return fmt.Sprintf("Booking trend: %s orders were booked over %s distinct days; the busiest day was %s with %s.",
		f.Count(len(details)), f.Count(days), busiest.key, f.Count(busiest.count))
}

func margins(details []Detail, f Formatter) string {
	var rated int
	var sum float64
	var best Detail
	for _, d := range details {
		if d.Rate <= 0 {
			continue
		}
		if rated == 0 || d.Rate > best.Rate {
			best = d
		}
		rated++
		sum += d.Rate
	}
	if rated == 0 {
		return ""
	}
	return fmt.Sprintf("Pricing: the average rate was %s; the highest was %s on order %s.",
		f.Money(sum/float64(rated)), f.Money(best.Rate), best.ID)
}

func timing(details []Detail, f Formatter) string {
	var dates []string
	byMonth := make(map[string]*tally)
	for _, d := range details {
		if len(d.Date) < 7 {
			continue
		}
		dates = append(dates, d.Date)
		m := d.Date[:7]
		t, ok := byMonth[m]
		if !ok {
			t = &tally{key: m}
			byMonth[m] = t
		}
		t.count++
	}
	if len(dates) == 0 {
		return ""
	}
	sort.Strings(dates)
	busiest, _ := top(byMonth)
	return fmt.Sprintf("Timing: orders run from %s to %s; %s was the busiest month with %s.",
		dates[0], dates[len(dates)-1], busiest.key, f.Count(busiest.count))
}

func customerMix(details []Detail, f Formatter) string {
	byCustomer := make(map[string]*tally)
	for _, d := range details {
		key := strings.TrimSpace(d.Customer)
		if key == "" {
			key = Unspecified
		}
		t, ok := byCustomer[strings.ToLower(key)]
		if !ok {
			t = &tally{key: key}
			byCustomer[strings.ToLower(key)] = t
		}
		t.count++
	}
	lead, customers := top(byCustomer)
	share := float64(lead.count) / float64(len(details)) * 100
	return fmt.Sprintf("Customer mix: %s distinct customers; %s accounts for %s of orders.",
		f.Count(customers), lead.key, f.Percent(share))
}
