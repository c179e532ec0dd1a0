package aggregate

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// Summarize renders a deterministic one-paragraph summary of res. Every
// number it states is taken from res.
func Summarize(res Result, f Formatter) string {
	scope := ""
	if res.Scope != "" {
		scope = " " + res.Scope
	}

	switch res.Kind {
	case KindRanking:
		return summarizeRanking(res, f, scope)
	case KindLookup:
		return summarizeLookup(res, f, scope)
	case KindScalar:
		return summarizeScalar(res, f, scope)
	case KindComparison:
		return summarizeComparison(res, f, scope)
	case KindPrediction:
		return summarizePrediction(res, f)
	}
	return ""
}

func noRecords(scope string) string {
	return fmt.Sprintf("No matching records%s.", scope)
}

func dimensionName(d sales.Dimension) string {
	return string(d)
}

func summarizeRanking(res Result, f Formatter, scope string) string {
	if len(res.Ranking) == 0 {
		return noRecords(scope)
	}
	dim := dimensionName(res.Dimension)
	labels := make([]string, len(res.Leaders))
	for i, l := range res.Leaders {
		labels[i] = l.Label
	}
	lead := res.Ranking[0]

	var b strings.Builder
	switch res.Metric {
	case MetricUnits:
		word := "most"
		if res.Direction == intent.DirectionLeast {
			word = "least"
		}
		if res.Tie {
			fmt.Fprintf(&b, "There is a tie for the %s sold %s%s: %s each have %s units.",
				word, dim, scope, joinLabels(labels), f.Number(lead.Units))
		} else {
			fmt.Fprintf(&b, "The %s sold %s%s is %s with %s units across %s %s.",
				word, dim, scope, lead.Label, f.Number(lead.Units), f.Count(lead.Count), plural(lead.Count, "order", "orders"))
		}
		fmt.Fprintf(&b, " Based on %s non-declined %s.", f.Count(res.RowCount), plural(res.RowCount, "order", "orders"))
	case MetricOrders:
		if res.Tie {
			fmt.Fprintf(&b, "There is a tie for the most orders by %s%s: %s each have %s %s.",
				dim, scope, joinLabels(labels), f.Count(lead.Count), plural(lead.Count, "order", "orders"))
		} else {
			fmt.Fprintf(&b, "%s has the most orders by %s%s with %s %s.",
				lead.Label, dim, scope, f.Count(lead.Count), plural(lead.Count, "order", "orders"))
		}
		fmt.Fprintf(&b, " %s non-declined %s in total.", f.Count(res.RowCount), plural(res.RowCount, "order", "orders"))
	case MetricRevenue:
		if res.Tie {
			fmt.Fprintf(&b, "There is a tie for the top %s by revenue%s: %s each have %s.",
				dim, scope, joinLabels(labels), f.Money(lead.Revenue))
		} else {
			fmt.Fprintf(&b, "The top %s by revenue%s is %s with %s from %s confirmed or processed %s.",
				dim, scope, lead.Label, f.Money(lead.Revenue), f.Count(lead.Count), plural(lead.Count, "order", "orders"))
		}
		if top, ok := mostOrders(res.Ranking); ok && top.Key != lead.Key {
			fmt.Fprintf(&b, " %s has the most orders (%s).", top.Label, f.Count(top.Count))
		}
	}
	return b.String()
}

// mostOrders returns the unique entry with the highest order count.
func mostOrders(entries []Entry) (Entry, bool) {
	var best Entry
	unique := false
	for i, en := range entries {
		switch {
		case i == 0 || en.Count > best.Count:
			best, unique = en, true
		case en.Count == best.Count:
			unique = false
		}
	}
	return best, unique && len(entries) > 0
}

func summarizeLookup(res Result, f Formatter, scope string) string {
	orders := fmt.Sprintf("%s confirmed or processed %s", f.Count(res.RowCount), plural(res.RowCount, "order", "orders"))
	var subject string
	switch res.LookupScope {
	case intent.LookupCustomer:
		subject = "Revenue for customer " + res.Entity + scope
	case intent.LookupAgent:
		subject = "Revenue for agent " + res.Entity + scope
	case intent.LookupOrderID:
		if res.RowCount == 0 {
			if res.Excluded > 0 {
				return fmt.Sprintf("Order %s is not confirmed or processed, so it has no realised revenue.", res.Entity)
			}
			return fmt.Sprintf("No order with id %s was found.", res.Entity)
		}
		return fmt.Sprintf("Revenue for order %s is %s.", res.Entity, f.Money(res.Value))
	default:
		subject = "Total revenue" + scope
	}
	if res.RowCount == 0 {
		return fmt.Sprintf("%s is %s: there are no confirmed or processed orders.", subject, f.Money(0))
	}
	return fmt.Sprintf("%s is %s from %s.", subject, f.Money(res.Value), orders)
}

func summarizeScalar(res Result, f Formatter, scope string) string {
	switch res.Operation {
	case intent.OpCount:
		s := fmt.Sprintf("There %s %s %s%s.", plural(res.RowCount, "is", "are"), f.Count(res.RowCount), plural(res.RowCount, "order", "orders"), scope)
		if b := res.Breakdown; b != nil && b.Declined > 0 && res.Excluded > 0 {
			s += fmt.Sprintf(" %s declined %s excluded out of %s in total.", f.Count(b.Declined), plural(b.Declined, "order was", "orders were"), f.Count(b.Total))
		}
		return s
	case intent.OpSummary:
		b := res.Breakdown
		if b == nil || b.Total == 0 {
			return noRecords(scope)
		}
		return fmt.Sprintf("Summary%s: %s %s (%s valid, %s declined), success rate %s, %s units sold and %s realised revenue.",
			scope, f.Count(b.Total), plural(b.Total, "order", "orders"), f.Count(b.Valid), f.Count(b.Declined),
			f.Percent(b.SuccessRate), f.Number(b.Units), f.Money(b.Revenue))
	}

	if res.RowCount == 0 {
		return noRecords(scope)
	}
	value := f.Number(res.Value)
	name := "quantity"
	switch res.Metric {
	case MetricRevenue:
		value, name = f.Money(res.Value), "revenue"
	case MetricRate:
		value, name = f.Money(res.Value), "rate"
	}
	across := fmt.Sprintf("across %s %s", f.Count(res.RowCount), plural(res.RowCount, "order", "orders"))

	switch res.Operation {
	case intent.OpSum:
		if res.Metric == MetricUnits {
			return fmt.Sprintf("Total quantity%s is %s units %s.", scope, value, across)
		}
		return fmt.Sprintf("Total %s%s is %s %s.", name, scope, value, across)
	case intent.OpAvg:
		return fmt.Sprintf("Average %s%s is %s %s.", name, scope, value, across)
	case intent.OpMax, intent.OpMin:
		word := "Highest"
		if res.Operation == intent.OpMin {
			word = "Lowest"
		}
		s := fmt.Sprintf("%s %s%s is %s", word, name, scope, value)
		if d := res.Extreme; d != nil {
			s += fmt.Sprintf(" (order %s for %s on %s)", d.ID, d.Customer, d.Date)
		}
		return s + ", " + across + "."
	}
	return ""
}

func summarizeComparison(res Result, f Formatter, scope string) string {
	if len(res.Ranking) == 0 {
		return noRecords(scope)
	}
	parts := make([]string, len(res.Ranking))
	for i, en := range res.Ranking {
		parts[i] = fmt.Sprintf("%s: %s %s, %s units, %s revenue", en.Label, f.Count(en.Count),
			plural(en.Count, "order", "orders"), f.Number(en.Units), f.Money(en.Revenue))
	}
	s := fmt.Sprintf("Comparison by %s%s. %s.", dimensionName(res.Dimension), scope, strings.Join(parts, "; "))
	if len(res.Ranking) > 1 {
		if res.Tie {
			labels := make([]string, len(res.Leaders))
			for i, l := range res.Leaders {
				labels[i] = l.Label
			}
			s += fmt.Sprintf(" %s are tied on revenue.", joinLabels(labels))
		} else {
			s += fmt.Sprintf(" %s leads on revenue.", res.Ranking[0].Label)
		}
	}
	return s
}

func summarizePrediction(res Result, f Formatter) string {
	if res.Error != nil {
		return "Not enough history to forecast: " + res.Error.Message + "."
	}
	if y := res.YearPrediction; y != nil {
		return fmt.Sprintf("Forecast for %d: about %s units, %s revenue and %s orders (confidence %s, based on %s months of history).",
			y.Year, f.Number(y.Quantity), f.Money(y.Revenue), f.Number(y.Orders), y.Confidence, f.Count(historyMonths(res)))
	}
	p := res.Prediction
	if p == nil {
		return ""
	}
	return fmt.Sprintf("Forecast for %s: about %s units, %s revenue and %s orders (confidence %s, %d months ahead, based on %s months of history).",
		p.Target.Format("January 2006"), f.Number(p.Quantity), f.Money(p.Revenue), f.Number(p.Orders),
		p.Confidence, p.MonthsAhead, f.Count(p.HistoricalMonths))
}

func historyMonths(res Result) int {
	if y := res.YearPrediction; y != nil && len(y.Months) > 0 {
		return y.Months[0].HistoricalMonths
	}
	return 0
}
