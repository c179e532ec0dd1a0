package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/prediction"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// ErrNotAggregatable is returned for intents that carry no computation, such
// as follow-ups and out-of-domain questions.
var ErrNotAggregatable = errors.New("intent has no aggregation")

// Engine executes intents. Its zero value is ready to use.
type Engine struct {
	Predictor prediction.Predictor
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Aggregate computes in over rows. A panic inside a pipeline is recovered
// and returned as an error so callers can fall back.
func (e *Engine) Aggregate(rows []cleaner.Record, in intent.Intent) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			err = fmt.Errorf("aggregating %s: panic: %v", kindOf(in), p)
		}
	}()

	rows = filterRows(rows, intent.FiltersOf(in))

	switch v := in.(type) {
	case intent.MostOrLeastSold:
		return e.mostOrLeastSold(rows, v), nil
	case intent.RankingByCount:
		return e.rankingByCount(rows, v), nil
	case intent.RankingByRevenue:
		return e.rankingByRevenue(rows, v), nil
	case intent.RevenueLookup:
		return e.revenueLookup(rows, v), nil
	case intent.GenericStatistic:
		return e.statistic(rows, v), nil
	case intent.Comparison:
		return e.comparison(rows, v), nil
	case intent.Prediction:
		return e.predict(rows, v), nil
	case intent.FollowUp, intent.OutOfDomain, intent.EntityNotResolved:
		return Result{}, fmt.Errorf("%s: %w", v.Kind(), ErrNotAggregatable)
	}
	return Result{}, fmt.Errorf("%s: %w", kindOf(in), ErrNotAggregatable)
}

func kindOf(in intent.Intent) string {
	if in == nil {
		return "nil intent"
	}
	return string(in.Kind())
}

func filterRows(rows []cleaner.Record, f intent.Filters) []cleaner.Record {
	if f.IsZero() {
		return rows
	}
	out := make([]cleaner.Record, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r.Record) {
			out = append(out, r)
		}
	}
	return out
}

// countable drops declined rows unless the question pinned a status.
func countable(rows []cleaner.Record, f intent.Filters) []cleaner.Record {
	if f.Status != "" {
		return rows
	}
	out := make([]cleaner.Record, 0, len(rows))
	for _, r := range rows {
		if !r.Status.IsDeclined() {
			out = append(out, r)
		}
	}
	return out
}

// realized keeps confirmed and processed rows unless the question pinned a
// status.
func realized(rows []cleaner.Record, f intent.Filters) []cleaner.Record {
	if f.Status != "" {
		return rows
	}
	out := make([]cleaner.Record, 0, len(rows))
	for _, r := range rows {
		if r.Status.IsRealized() {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) mostOrLeastSold(all []cleaner.Record, in intent.MostOrLeastSold) Result {
	rows := countable(all, in.Filters)
	res := newResult(KindRanking, rows)
	res.Metric = MetricUnits
	res.Dimension = in.Dimension
	res.Direction = in.Direction
	res.Excluded = len(all) - len(rows)
	res.Ranking = group(rows, in.Dimension, func(en *Entry) float64 { return en.Units })
	rank(&res, in.Direction == intent.DirectionLeast)
	return res
}

func (e *Engine) rankingByCount(all []cleaner.Record, in intent.RankingByCount) Result {
	rows := countable(all, in.Filters)
	res := newResult(KindRanking, rows)
	res.Metric = MetricOrders
	res.Dimension = in.Dimension
	res.Direction = intent.DirectionMost
	res.Excluded = len(all) - len(rows)
	res.Ranking = group(rows, in.Dimension, func(en *Entry) float64 { return float64(en.Count) })
	rank(&res, false)
	return res
}

func (e *Engine) rankingByRevenue(all []cleaner.Record, in intent.RankingByRevenue) Result {
	rows := realized(all, in.Filters)
	res := newResult(KindRanking, rows)
	res.Metric = MetricRevenue
	res.Dimension = in.Dimension
	res.Direction = intent.DirectionMost
	res.Excluded = len(all) - len(rows)
	res.Ranking = group(rows, in.Dimension, func(en *Entry) float64 { return en.Revenue })
	rank(&res, false)
	return res
}

func (e *Engine) revenueLookup(all []cleaner.Record, in intent.RevenueLookup) Result {
	scoped := all
	if in.Scope == intent.LookupOrderID {
		scoped = nil
		for _, r := range all {
			if strings.EqualFold(strings.TrimSpace(r.ID), in.OrderID) {
				scoped = append(scoped, r)
			}
		}
	}
	rows := realized(scoped, in.Filters)
	res := newResult(KindLookup, rows)
	res.Metric = MetricRevenue
	res.LookupScope = in.Scope
	res.Entity = in.Entity
	if in.Scope == intent.LookupOrderID {
		res.Entity = in.OrderID
	}
	res.Excluded = len(scoped) - len(rows)
	for _, r := range rows {
		res.Value += r.Revenue()
	}
	return res
}

func (e *Engine) statistic(all []cleaner.Record, in intent.GenericStatistic) Result {
	switch in.Operation {
	case intent.OpCount:
		rows := countable(all, in.Filters)
		res := newResult(KindScalar, rows)
		res.Operation = in.Operation
		res.Metric = MetricOrders
		res.Value = float64(len(rows))
		res.Excluded = len(all) - len(rows)
		b := breakdown(all)
		res.Breakdown = &b
		return res
	case intent.OpSum, intent.OpAvg, intent.OpMin, intent.OpMax:
		return e.columnStatistic(all, in)
	}
	return e.summary(all)
}

func (e *Engine) columnStatistic(all []cleaner.Record, in intent.GenericStatistic) Result {
	var rows []cleaner.Record
	var value func(cleaner.Record) float64
	metric := MetricUnits
	switch in.Column {
	case intent.ColumnRevenue:
		metric = MetricRevenue
		rows = realized(all, in.Filters)
		value = cleaner.Record.Revenue
	case intent.ColumnRate:
		metric = MetricRate
		for _, r := range countable(all, in.Filters) {
			if r.RateValue > 0 {
				rows = append(rows, r)
			}
		}
		value = func(r cleaner.Record) float64 { return r.RateValue }
	case intent.ColumnOrders:
		return e.statistic(all, intent.GenericStatistic{Operation: intent.OpCount, Column: in.Column, Filters: in.Filters})
	default:
		for _, r := range countable(all, in.Filters) {
			if r.QuantityValid {
				rows = append(rows, r)
			}
		}
		value = func(r cleaner.Record) float64 { return r.QuantityValue }
	}

	res := newResult(KindScalar, rows)
	res.Operation = in.Operation
	res.Metric = metric
	res.Excluded = len(all) - len(rows)
	if len(rows) == 0 {
		return res
	}

	var sum float64
	extreme := 0
	for i, r := range rows {
		v := value(r)
		sum += v
		switch in.Operation {
		case intent.OpMax:
			if v > value(rows[extreme]) {
				extreme = i
			}
		case intent.OpMin:
			if v < value(rows[extreme]) {
				extreme = i
			}
		}
	}
	switch in.Operation {
	case intent.OpSum:
		res.Value = sum
	case intent.OpAvg:
		res.Value = sum / float64(len(rows))
	case intent.OpMin, intent.OpMax:
		res.Value = value(rows[extreme])
		d := res.Details[extreme]
		res.Extreme = &d
	}
	return res
}

func (e *Engine) summary(all []cleaner.Record) Result {
	res := newResult(KindScalar, all)
	res.Operation = intent.OpSummary
	res.Metric = MetricOrders
	res.Value = float64(len(all))
	b := breakdown(all)
	res.Breakdown = &b
	return res
}

func breakdown(rows []cleaner.Record) Breakdown {
	var b Breakdown
	b.Total = len(rows)
	for _, r := range rows {
		switch sales.ParseStatus(string(r.Status)) {
		case sales.StatusDeclined:
			b.Declined++
			continue
		case sales.StatusConfirmed:
			b.Confirmed++
		case sales.StatusProcessed:
			b.Processed++
		case sales.StatusPending:
			b.Pending++
		}
		b.Units += r.QuantityValue
		if r.Status.IsRealized() {
			b.Revenue += r.Revenue()
		}
	}
	b.Valid = b.Total - b.Declined
	if b.Total > 0 {
		b.SuccessRate = RoundTo2(float64(b.Confirmed+b.Processed) / float64(b.Total) * 100)
	}
	return b
}

func (e *Engine) comparison(all []cleaner.Record, in intent.Comparison) Result {
	wanted := make(map[string]bool, len(in.Entities))
	for _, name := range in.Entities {
		wanted[groupKey(name)] = true
	}
	var scoped []cleaner.Record
	for _, r := range all {
		if len(wanted) == 0 || wanted[groupKey(in.Dimension.Value(r.Record))] {
			scoped = append(scoped, r)
		}
	}

	rows := countable(scoped, in.Filters)
	res := newResult(KindComparison, rows)
	res.Metric = MetricRevenue
	res.Dimension = in.Dimension
	res.Excluded = len(scoped) - len(rows)

	entries := group(rows, in.Dimension, nil)
	// Revenue follows the realised rule even though counts exclude only
	// declined orders.
	for i := range entries {
		entries[i].Revenue = 0
	}
	index := make(map[string]int, len(entries))
	for i, en := range entries {
		index[en.Key] = i
	}
	for _, r := range realized(scoped, in.Filters) {
		if i, ok := index[groupKey(in.Dimension.Value(r.Record))]; ok {
			entries[i].Revenue += r.Revenue()
		}
	}
	for i := range entries {
		entries[i].Value = entries[i].Revenue
	}
	res.Ranking = entries
	rank(&res, false)
	return res
}

func (e *Engine) predict(all []cleaner.Record, in intent.Prediction) Result {
	var rows []cleaner.Record
	for _, r := range all {
		if r.HasDate && !r.Status.IsDeclined() {
			rows = append(rows, r)
		}
	}
	res := newResult(KindPrediction, rows)
	res.Metric = MetricUnits
	res.Excluded = len(all) - len(rows)

	history := prediction.Monthly(rows)
	if in.Yearly {
		y, err := e.Predictor.PredictYear(in.Target.Year(), history)
		if err != nil {
			res.Error = insufficient(fmt.Sprintf("%d", in.Target.Year()))
			return res
		}
		res.YearPrediction = &y
		res.Value = y.Quantity
		return res
	}
	p, err := e.Predictor.Predict(in.Target, history)
	if err != nil {
		res.Error = insufficient(in.Target.Format("January 2006"))
		return res
	}
	res.Prediction = &p
	res.Value = p.Quantity
	return res
}

func insufficient(target string) *Error {
	return &Error{
		Code:    ErrorInsufficientHistory,
		Message: fmt.Sprintf("there is no sales history to forecast %s from", target),
	}
}

// group aggregates rows by the lower-cased, trimmed value of d. metric, when
// set, fills each Entry's Value.
func group(rows []cleaner.Record, d sales.Dimension, metric func(*Entry) float64) []Entry {
	byKey := make(map[string]*Entry)
	var order []string
	for _, r := range rows {
		key := groupKey(d.Value(r.Record))
		en, ok := byKey[key]
		if !ok {
			en = &Entry{Key: key, Label: Title(key)}
			byKey[key] = en
			order = append(order, key)
		}
		en.Count++
		en.Units += r.QuantityValue
		en.Revenue += r.Revenue()
	}
	out := make([]Entry, 0, len(order))
	for _, key := range order {
		en := byKey[key]
		if metric != nil {
			en.Value = metric(en)
		}
		out = append(out, *en)
	}
	return out
}

func groupKey(v string) string {
	key := strings.ToLower(strings.TrimSpace(v))
	if key == "" {
		return Unspecified
	}
	return key
}

// Title re-titles a lower-cased grouping key for display.
func Title(key string) string {
	if key == Unspecified {
		return key
	}
	return cases.Title(language.English).String(key)
}

// rank sorts the ranking on values rounded to two decimals and marks a tie
// when two or more entries share the leading value.
func rank(res *Result, ascending bool) {
	entries := res.Ranking
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := RoundTo2(entries[i].Value), RoundTo2(entries[j].Value)
		if a != b {
			if ascending {
				return a < b
			}
			return a > b
		}
		return entries[i].Key < entries[j].Key
	})
	res.Leaders = nil
	res.Tie = false
	if len(entries) == 0 {
		return
	}
	lead := RoundTo2(entries[0].Value)
	for _, en := range entries {
		if RoundTo2(en.Value) != lead {
			break
		}
		res.Leaders = append(res.Leaders, en)
	}
	res.Tie = len(res.Leaders) > 1
	res.Value = entries[0].Value
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
