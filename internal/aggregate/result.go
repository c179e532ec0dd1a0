// Package aggregate executes classified intents against cleaned rows and
// renders deterministic summaries of the results.
package aggregate

import (
	"time"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/prediction"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// Kind tags a Result.
type Kind string

const (
	KindRanking    Kind = "ranking"
	KindScalar     Kind = "scalar"
	KindLookup     Kind = "lookup"
	KindPrediction Kind = "prediction"
	KindComparison Kind = "comparison"
)

// Metric is what a ranking or scalar measures.
type Metric string

const (
	MetricUnits   Metric = "units"
	MetricOrders  Metric = "orders"
	MetricRevenue Metric = "revenue"
	MetricRate    Metric = "rate"
)

// Unspecified is the grouping key for rows with an empty dimension value.
const Unspecified = "(unspecified)"

// ErrorCode identifies a result that carries no numbers.
type ErrorCode string

const ErrorInsufficientHistory ErrorCode = "insufficient_history"

// Error is an explicit in-band failure, such as a forecast without history.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Entry is one group of a ranking or comparison.
type Entry struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Count   int     `json:"count"`
	Units   float64 `json:"units"`
	Revenue float64 `json:"revenue"`
}

// Detail is one row a result was computed from.
type Detail struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Customer    string  `json:"customer"`
	Agent       string  `json:"agent"`
	Weave       string  `json:"weave"`
	Quality     string  `json:"quality"`
	Composition string  `json:"composition"`
	Status      string  `json:"status"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Revenue     float64 `json:"revenue"`
}

// Breakdown splits a set of orders by status.
type Breakdown struct {
	Total       int     `json:"total"`
	Valid       int     `json:"valid"`
	Declined    int     `json:"declined"`
	Confirmed   int     `json:"confirmed"`
	Processed   int     `json:"processed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
	Units       float64 `json:"units"`
	Revenue     float64 `json:"revenue"`
}

// Result is the outcome of one aggregation. RowCount always equals
// len(Details); both come from the same row slice.
type Result struct {
	Kind      Kind             `json:"kind"`
	Metric    Metric           `json:"metric,omitempty"`
	Dimension sales.Dimension  `json:"dimension,omitempty"`
	Direction intent.Direction `json:"direction,omitempty"`
	Operation intent.Operation `json:"operation,omitempty"`

	Ranking []Entry `json:"ranking,omitempty"`
	Tie     bool    `json:"tie"`
	Leaders []Entry `json:"leaders,omitempty"`

	Value       float64            `json:"value"`
	Entity      string             `json:"entity,omitempty"`
	LookupScope intent.LookupScope `json:"lookup_scope,omitempty"`
	Extreme     *Detail            `json:"extreme,omitempty"`
	Breakdown   *Breakdown         `json:"breakdown,omitempty"`

	Prediction     *prediction.Prediction     `json:"prediction,omitempty"`
	YearPrediction *prediction.YearPrediction `json:"year_prediction,omitempty"`

	// Scope is the temporal label the rows were narrowed to, if any.
	Scope    string   `json:"scope,omitempty"`
	RowCount int      `json:"row_count"`
	Details  []Detail `json:"details"`
	Excluded int      `json:"excluded"`
	Error    *Error   `json:"error,omitempty"`
}

func newResult(kind Kind, rows []cleaner.Record) Result {
	details := make([]Detail, len(rows))
	for i, r := range rows {
		details[i] = detailOf(r)
	}
	return Result{Kind: kind, RowCount: len(details), Details: details}
}

func detailOf(r cleaner.Record) Detail {
	date := r.Record.Date
	if r.HasDate {
		date = r.Date.Format(time.DateOnly)
	}
	return Detail{
		ID:          r.ID,
		Date:        date,
		Customer:    r.CustomerName,
		Agent:       r.AgentName,
		Weave:       r.Weave,
		Quality:     r.Quality,
		Composition: r.Composition,
		Status:      string(r.Status),
		Quantity:    r.QuantityValue,
		Rate:        r.RateValue,
		Revenue:     r.Revenue(),
	}
}
