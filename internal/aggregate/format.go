package aggregate

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency prefixes money amounts unless configured otherwise.
const DefaultCurrency = "₹"

// Formatter renders numbers for summaries.
type Formatter struct {
	Currency string
}

// NewFormatter returns a Formatter using currency, or DefaultCurrency when
// it is empty.
func NewFormatter(currency string) Formatter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Formatter{Currency: currency}
}

// Money formats an amount with two decimals and thousands separators.
func (f Formatter) Money(v float64) string {
	p := message.NewPrinter(language.English)
	if v < 0 {
		return "-" + f.Currency + p.Sprintf("%.2f", -v)
	}
	return f.Currency + p.Sprintf("%.2f", v)
}

// Number formats a quantity, dropping the fraction when it is whole.
func (f Formatter) Number(v float64) string {
	p := message.NewPrinter(language.English)
	v = RoundTo2(v)
	if v == math.Trunc(v) {
		return p.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(p.Sprintf("%.2f", v), "0"), ".")
}

// Count formats an integer count.
func (f Formatter) Count(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// Percent formats a percentage with up to two decimals.
func (f Formatter) Percent(v float64) string {
	return f.Number(v) + "%"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// joinLabels renders "A", "A and B" or "A, B and C".
func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}
