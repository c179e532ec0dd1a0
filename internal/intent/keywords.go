package intent

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/salesiq/internal/resolver"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// businessKeywords define the domain. A question must mention one of them,
// possibly misspelled, or a live dataset value.
var businessKeywords = []string{
	"sales", "sale", "sold", "sell", "selling", "revenue", "order", "orders", "quantity",
	"units", "rate", "price", "agent", "agents", "customer", "customers", "client", "clients",
	"buyer", "weave", "quality", "composition", "status", "confirmed", "declined", "pending",
	"processed", "predict", "prediction", "forecast", "projection", "trend", "growth",
	"performance", "performing", "performer", "fabric", "income", "turnover", "earnings",
	"business", "statistics", "summary", "salesman", "salesperson",
}

// everydayWords look like business keywords to the fuzzy matcher but are
// ordinary English.
var everydayWords = set("weather", "wealth", "weapon", "wearing", "weekend", "salad",
	"salary", "sailing", "ordinary", "orderly", "climate", "predator", "probably", "project")

var dimensionWords = map[string]sales.Dimension{
	"agent": sales.DimAgent, "agents": sales.DimAgent, "salesman": sales.DimAgent,
	"salesmen": sales.DimAgent, "salesperson": sales.DimAgent, "rep": sales.DimAgent,
	"reps": sales.DimAgent, "representative": sales.DimAgent,
	"customer": sales.DimCustomer, "customers": sales.DimCustomer, "client": sales.DimCustomer,
	"clients": sales.DimCustomer, "buyer": sales.DimCustomer, "buyers": sales.DimCustomer,
	"weave": sales.DimWeave, "weaves": sales.DimWeave, "weaving": sales.DimWeave,
	"quality": sales.DimQuality, "qualities": sales.DimQuality, "grade": sales.DimQuality,
	"composition": sales.DimComposition, "compositions": sales.DimComposition,
	"material": sales.DimComposition, "materials": sales.DimComposition,
	"status": sales.DimStatus, "statuses": sales.DimStatus,
}

var statusWords = map[string]sales.Status{
	"confirmed": sales.StatusConfirmed,
	"declined":  sales.StatusDeclined,
	"cancelled": sales.StatusDeclined,
	"canceled":  sales.StatusDeclined,
	"rejected":  sales.StatusDeclined,
	"pending":   sales.StatusPending,
	"processed": sales.StatusProcessed,
}

var (
	predictionPhrases = []string{
		"predict", "prediction", "predictions", "forecast", "forecasts", "projection", "projected",
		"future", "will be", "upcoming", "expected", "next month", "next year", "going to be", "estimate",
	}
	comparisonWords = set("compare", "comparison", "vs", "versus")

	mostSoldPhrases = []string{
		"most sold", "best selling", "top selling", "most popular", "highest selling",
		"highest sold", "most selling", "sold the most", "sold most", "sells the most",
	}
	leastSoldPhrases = []string{
		"least sold", "worst selling", "lowest selling", "least selling", "least popular",
		"lowest sold", "slowest selling", "sold the least", "sold least", "sells the least",
	}

	orderRankWords = set("most", "highest", "maximum", "max", "top", "more", "fewest", "least", "lowest")

	mostWords  = set("most", "highest", "maximum", "max", "top", "more", "largest", "biggest")
	leastWords = set("least", "lowest", "minimum", "min", "fewest", "smallest")

	quantityWords = set("quantity", "quantities", "units", "unit", "volume", "meters", "metres", "mtr")
	orderWords    = set("order", "orders", "sales", "sale", "bookings")
	revenueWords  = set("revenue", "revenues", "turnover", "income", "earning", "earnings")
	rateWords     = set("rate", "rates", "price", "prices")
	avgWords      = set("average", "avg", "mean")
	strongWords   = set("best", "top", "performing", "performer", "performers", "leader", "leaders",
		"winner", "winners", "leading")

	// entityFillers end an "agent X" / "customer X" phrase without being a name.
	entityFillers = set(
		"name", "names", "list", "wise", "type", "types", "detail", "details", "data", "info",
		"information", "ranking", "rankings", "breakdown", "report", "analysis", "summary", "stats",
		"statistics", "id", "ids", "base", "mix", "level", "levels", "share", "trends", "that",
		"who", "had", "made", "placed", "got", "per", "vs", "versus", "compare", "performer",
		"performers", "revenue", "income", "turnover", "earnings", "quantity", "units", "company",
		"business", "team", "today", "our", "your", "there", "here", "so", "far", "overall", "count",
	)

	followUpFillers = set("what", "about", "how", "and", "only", "also", "then", "show", "me",
		"same", "for", "in", "during", "within", "month", "year", "please", "just", "now", "the")

	affirmativeWords = set("yes", "yeah", "yep", "sure", "please", "do", "go", "ahead", "correct", "ok", "okay")
)

var (
	orderIDPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{24}\b`)

	entityPhrasePattern = regexp.MustCompile(`(?i)\b(agent|salesman|salesperson|customer|client|buyer)s?\s+(?:named\s+|called\s+)?([\p{L}][\p{L}\p{N}.'&-]*(?:\s+[\p{L}][\p{L}\p{N}.'&-]*){0,2})`)
	possessivePattern   = regexp.MustCompile(`(?i)\b([\p{L}][\p{L}.]*)'s\s+(?:revenue|sales|orders|income|turnover|earnings?)\b`)
)

var entityDimension = map[string]sales.Dimension{
	"agent": sales.DimAgent, "salesman": sales.DimAgent, "salesperson": sales.DimAgent,
	"customer": sales.DimCustomer, "client": sales.DimCustomer, "buyer": sales.DimCustomer,
}

// IsAffirmative reports whether question is a bare confirmation such as
// "yes" or "go ahead".
func IsAffirmative(question string) bool {
	words := resolver.Words(question)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		if !affirmativeWords[w] {
			return false
		}
	}
	return true
}

// OrderID returns the first 24-hex order id in question.
func OrderID(question string) string {
	return strings.ToLower(orderIDPattern.FindString(question))
}

func hasAny(words []string, vocab map[string]bool) bool {
	for _, w := range words {
		if vocab[w] {
			return true
		}
	}
	return false
}

func hasPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if resolver.ContainsWord(text, p) {
			return true
		}
	}
	return false
}
