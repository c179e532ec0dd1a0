// Package prediction projects future monthly sales from historical monthly
// aggregates using average growth and a seasonal factor.
package prediction

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
)

// ErrInsufficientHistory is returned when there is no dated, non-declined
// history to project from.
var ErrInsufficientHistory = errors.New("insufficient history for prediction")

// Confidence is a coarse reliability tier derived from how far ahead the
// target lies.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// MonthlyAggregate is the non-declined activity of one calendar month.
type MonthlyAggregate struct {
	Month    time.Time `json:"month"`
	Quantity float64   `json:"quantity"`
	Revenue  float64   `json:"revenue"`
	Orders   int       `json:"orders"`
}

// Prediction is a projection for one target month.
type Prediction struct {
	Target           time.Time  `json:"target"`
	Quantity         float64    `json:"quantity"`
	Revenue          float64    `json:"revenue"`
	Orders           float64    `json:"orders"`
	GrowthRate       float64    `json:"growth_rate"`
	SeasonalFactor   float64    `json:"seasonal_factor"`
	MonthsAhead      int        `json:"months_ahead"`
	Confidence       Confidence `json:"confidence"`
	HistoricalMonths int        `json:"historical_months"`
}

// YearPrediction is a twelve month projection.
type YearPrediction struct {
	Year       int          `json:"year"`
	Months     []Prediction `json:"months"`
	Quantity   float64      `json:"quantity"`
	Revenue    float64      `json:"revenue"`
	Orders     float64      `json:"orders"`
	Confidence Confidence   `json:"confidence"`
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Monthly groups rows by calendar month, ascending. Declined rows and rows
// without a date are left out.
func Monthly(rows []cleaner.Record) []MonthlyAggregate {
	byMonth := make(map[time.Time]*MonthlyAggregate)
	for _, r := range rows {
		if !r.HasDate || r.Status.IsDeclined() {
			continue
		}
		m := MonthStart(r.Date)
		agg, ok := byMonth[m]
		if !ok {
			agg = &MonthlyAggregate{Month: m}
			byMonth[m] = agg
		}
		agg.Quantity += r.QuantityValue
		agg.Revenue += r.Revenue()
		agg.Orders++
	}
	out := make([]MonthlyAggregate, 0, len(byMonth))
	for _, agg := range byMonth {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// Latest returns the latest month in history, or the zero time.
func Latest(history []MonthlyAggregate) time.Time {
	if len(history) == 0 {
		return time.Time{}
	}
	return history[len(history)-1].Month
}

// Predictor computes projections. Its zero value is ready to use.
type Predictor struct{}

// Predict projects quantity, revenue and orders for the month of target.
// history must be sorted ascending, as returned by Monthly.
func (Predictor) Predict(target time.Time, history []MonthlyAggregate) (Prediction, error) {
	if len(history) == 0 {
		return Prediction{}, ErrInsufficientHistory
	}
	target = MonthStart(target)
	latest := Latest(history)

	var qty, rev, orders []float64
	for _, h := range history {
		qty = append(qty, h.Quantity)
		rev = append(rev, h.Revenue)
		orders = append(orders, float64(h.Orders))
	}

	growth := GrowthRate(qty)
	seasonal := SeasonalFactor(target.Month(), history)
	ahead := MonthsBetween(latest, target)
	scale := seasonal * math.Pow(1+growth, float64(ahead))

	return Prediction{
		Target:           target,
		Quantity:         mean(qty) * scale,
		Revenue:          mean(rev) * scale,
		Orders:           mean(orders) * scale,
		GrowthRate:       growth,
		SeasonalFactor:   seasonal,
		MonthsAhead:      ahead,
		Confidence:       ConfidenceFor(ahead),
		HistoricalMonths: len(history),
	}, nil
}

// PredictYear projects every month of year and sums them. The confidence is
// that of the furthest month.
func (p Predictor) PredictYear(year int, history []MonthlyAggregate) (YearPrediction, error) {
	out := YearPrediction{Year: year}
	for m := time.January; m <= time.December; m++ {
		pr, err := p.Predict(time.Date(year, m, 1, 0, 0, 0, 0, time.UTC), history)
		if err != nil {
			return YearPrediction{}, err
		}
		out.Months = append(out.Months, pr)
		out.Quantity += pr.Quantity
		out.Revenue += pr.Revenue
		out.Orders += pr.Orders
		out.Confidence = pr.Confidence
	}
	return out, nil
}

// GrowthRate is the mean month-over-month relative change. A pair whose
// previous value is zero contributes a zero term. Fewer than two values
// yield zero growth.
func GrowthRate(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		if prev := values[i-1]; prev != 0 {
			sum += (values[i] - prev) / prev
		}
	}
	return sum / float64(len(values)-1)
}

// SeasonalFactor is the average quantity of month across history divided by
// the overall monthly average. It is 1 when the month never occurs or the
// overall average is zero.
func SeasonalFactor(month time.Month, history []MonthlyAggregate) float64 {
	var all, same []float64
	for _, h := range history {
		all = append(all, h.Quantity)
		if h.Month.Month() == month {
			same = append(same, h.Quantity)
		}
	}
	overall := mean(all)
	if len(same) == 0 || overall == 0 {
		return 1
	}
	return mean(same) / overall
}

// MonthsBetween returns the signed number of calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// ConfidenceFor maps a horizon to a tier. Past and current months count as
// near.
func ConfidenceFor(monthsAhead int) Confidence {
	switch {
	case monthsAhead <= 6:
		return ConfidenceHigh
	case monthsAhead <= 12:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
