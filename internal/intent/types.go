// Package intent turns a free-text sales question into a tagged Intent that
// downstream code switches on exhaustively.
package intent

import (
	"strings"
	"time"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

// Kind tags an Intent variant.
type Kind string

const (
	KindRankingByCount    Kind = "ranking_by_count"
	KindRankingByRevenue  Kind = "ranking_by_revenue"
	KindMostOrLeastSold   Kind = "most_or_least_sold"
	KindRevenueLookup     Kind = "revenue_lookup"
	KindGenericStatistic  Kind = "generic_statistic"
	KindPrediction        Kind = "prediction"
	KindComparison        Kind = "comparison"
	KindFollowUp          Kind = "follow_up"
	KindOutOfDomain       Kind = "out_of_domain"
	KindEntityNotResolved Kind = "entity_not_resolved"
)

// Intent is one of the concrete variant types declared in this file.
type Intent interface {
	Kind() Kind
	isIntent()
}

// Filters narrow the rows an intent is computed over. Empty fields do not
// constrain anything.
type Filters struct {
	Agent       string       `json:"agent,omitempty"`
	Customer    string       `json:"customer,omitempty"`
	Weave       string       `json:"weave,omitempty"`
	Quality     string       `json:"quality,omitempty"`
	Composition string       `json:"composition,omitempty"`
	Status      sales.Status `json:"status,omitempty"`
}

// Value returns the filter value for d.
func (f Filters) Value(d sales.Dimension) string {
	switch d {
	case sales.DimAgent:
		return f.Agent
	case sales.DimCustomer:
		return f.Customer
	case sales.DimWeave:
		return f.Weave
	case sales.DimQuality:
		return f.Quality
	case sales.DimComposition:
		return f.Composition
	case sales.DimStatus:
		return string(f.Status)
	}
	return ""
}

// With returns a copy of f with the filter for d set to v.
func (f Filters) With(d sales.Dimension, v string) Filters {
	switch d {
	case sales.DimAgent:
		f.Agent = v
	case sales.DimCustomer:
		f.Customer = v
	case sales.DimWeave:
		f.Weave = v
	case sales.DimQuality:
		f.Quality = v
	case sales.DimComposition:
		f.Composition = v
	case sales.DimStatus:
		f.Status = sales.ParseStatus(v)
	}
	return f
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool { return f == Filters{} }

// Matches reports whether r satisfies every set filter, ignoring case.
func (f Filters) Matches(r sales.Record) bool {
	for _, d := range sales.Dimensions {
		want := f.Value(d)
		if want == "" {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(d.Value(r)), want) {
			return false
		}
	}
	return true
}

// Direction orders a most/least ranking.
type Direction string

const (
	DirectionMost  Direction = "most"
	DirectionLeast Direction = "least"
)

// LookupScope says which slice of orders a revenue lookup covers.
type LookupScope string

const (
	LookupCustomer LookupScope = "customer"
	LookupAgent    LookupScope = "agent"
	LookupDate     LookupScope = "date"
	LookupYear     LookupScope = "year"
	LookupMonth    LookupScope = "month"
	LookupOrderID  LookupScope = "order_id"
	LookupAll      LookupScope = "all"
)

// Operation is a generic statistic.
type Operation string

const (
	OpCount   Operation = "count"
	OpSum     Operation = "sum"
	OpAvg     Operation = "avg"
	OpMin     Operation = "min"
	OpMax     Operation = "max"
	OpSummary Operation = "summary"
)

// Column is the numeric field a statistic is computed over.
type Column string

const (
	ColumnOrders   Column = "orders"
	ColumnQuantity Column = "quantity"
	ColumnRate     Column = "rate"
	ColumnRevenue  Column = "revenue"
)

// RankingByCount ranks the values of a dimension by order count.
type RankingByCount struct {
	Dimension sales.Dimension `json:"dimension"`
	Filters   Filters         `json:"filters"`
}

// RankingByRevenue ranks the values of a dimension by realised revenue.
type RankingByRevenue struct {
	Dimension sales.Dimension `json:"dimension"`
	Filters   Filters         `json:"filters"`
}

// MostOrLeastSold ranks the values of a dimension by units sold.
type MostOrLeastSold struct {
	Dimension sales.Dimension `json:"dimension"`
	Direction Direction       `json:"direction"`
	Filters   Filters         `json:"filters"`
}

// RevenueLookup totals the revenue of a single entity, order or period.
type RevenueLookup struct {
	Scope   LookupScope `json:"scope"`
	Entity  string      `json:"entity,omitempty"`
	OrderID string      `json:"order_id,omitempty"`
	Filters Filters     `json:"filters"`
}

// GenericStatistic is a plain count, sum, average, extreme or summary.
type GenericStatistic struct {
	Operation Operation `json:"operation"`
	Column    Column    `json:"column"`
	Filters   Filters   `json:"filters"`
}

// Prediction projects a future month, or a whole year when Yearly is set.
type Prediction struct {
	Target time.Time `json:"target"`
	Yearly bool      `json:"yearly"`
}

// Comparison lines up orders, units and revenue for several values of a
// dimension. An empty Entities compares every value.
type Comparison struct {
	Dimension sales.Dimension `json:"dimension"`
	Entities  []string        `json:"entities,omitempty"`
	Filters   Filters         `json:"filters"`
}

// FollowUp defers to the conversational context.
type FollowUp struct{}

// OutOfDomain marks a question unrelated to the dataset.
type OutOfDomain struct{}

// EntityNotResolved marks a named agent or customer that matched nothing.
type EntityNotResolved struct {
	Dimension  sales.Dimension `json:"dimension"`
	Phrase     string          `json:"phrase"`
	Candidates []string        `json:"candidates,omitempty"`
}

func (RankingByCount) Kind() Kind    { return KindRankingByCount }
func (RankingByRevenue) Kind() Kind  { return KindRankingByRevenue }
func (MostOrLeastSold) Kind() Kind   { return KindMostOrLeastSold }
func (RevenueLookup) Kind() Kind     { return KindRevenueLookup }
func (GenericStatistic) Kind() Kind  { return KindGenericStatistic }
func (Prediction) Kind() Kind        { return KindPrediction }
func (Comparison) Kind() Kind        { return KindComparison }
func (FollowUp) Kind() Kind          { return KindFollowUp }
func (OutOfDomain) Kind() Kind       { return KindOutOfDomain }
func (EntityNotResolved) Kind() Kind { return KindEntityNotResolved }

func (RankingByCount) isIntent()    {}
func (RankingByRevenue) isIntent()  {}
func (MostOrLeastSold) isIntent()   {}
func (RevenueLookup) isIntent()     {}
func (GenericStatistic) isIntent()  {}
func (Prediction) isIntent()        {}
func (Comparison) isIntent()        {}
func (FollowUp) isIntent()          {}
func (OutOfDomain) isIntent()       {}
func (EntityNotResolved) isIntent() {}

// FiltersOf returns the row filters carried by in, if any.
func FiltersOf(in Intent) Filters {
	switch v := in.(type) {
	case RankingByCount:
		return v.Filters
	case RankingByRevenue:
		return v.Filters
	case MostOrLeastSold:
		return v.Filters
	case RevenueLookup:
		return v.Filters
	case GenericStatistic:
		return v.Filters
	case Comparison:
		return v.Filters
	}
	return Filters{}
}
