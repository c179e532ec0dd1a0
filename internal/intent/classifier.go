package intent

import (
	"strings"
	"time"

	"github.com/ziadkadry99/salesiq/internal/prediction"
	"github.com/ziadkadry99/salesiq/internal/resolver"
	"github.com/ziadkadry99/salesiq/internal/sales"
	"github.com/ziadkadry99/salesiq/internal/temporal"
)

// Env is the live context a question is classified against.
type Env struct {
	Vocabulary *sales.Vocabulary
	// Latest is the first day of the latest month with history. Zero when
	// there is no dated history.
	Latest time.Time
	Now    time.Time
}

// Classifier maps questions to intents using a fixed precedence.
type Classifier struct {
	resolver *resolver.Resolver
}

// NewClassifier creates a Classifier. A nil resolver uses the defaults.
func NewClassifier(r *resolver.Resolver) *Classifier {
	if r == nil {
		r = resolver.New()
	}
	return &Classifier{resolver: r}
}

// Classify returns the intent of question. prior is the previous raw
// question in the session, or empty.
func (c *Classifier) Classify(question, prior string, env Env) Intent {
	q := resolver.CorrectMisspellings(strings.TrimSpace(question))
	words := resolver.Words(q)
	text := strings.Join(words, " ")

	if !c.inDomain(q, words, env) {
		if prior != "" && IsFollowUpShape(q) {
			return FollowUp{}
		}
		return OutOfDomain{}
	}

	filters, miss := c.filters(q, words, env)
	if miss != nil {
		return *miss
	}

	if target, yearly, ok := c.predictionTarget(q, text, env); ok {
		return Prediction{Target: target, Yearly: yearly}
	}

	if hasAny(words, comparisonWords) {
		return c.comparison(q, words, filters, env)
	}

	if dir, ok := soldDirection(text, words); ok {
		return MostOrLeastSold{
			Dimension: detectDimension(words, filters, sales.DimWeave),
			Direction: dir,
			Filters:   filters,
		}
	}

	if isOrderRanking(text, words) {
		return RankingByCount{Dimension: detectDimension(words, filters, sales.DimAgent), Filters: filters}
	}

	if isRevenueRanking(text, words) {
		return RankingByRevenue{Dimension: detectDimension(words, filters, sales.DimAgent), Filters: filters}
	}

	if hasAny(words, revenueWords) {
		return revenueLookup(q, filters)
	}

	return statistic(text, words, filters)
}

// IsFollowUpShape reports whether question only makes sense as a
// continuation: an affirmative or a bare temporal filter.
func IsFollowUpShape(question string) bool {
	if IsAffirmative(question) {
		return true
	}
	if temporal.Parse(question).IsZero() {
		return false
	}
	for _, w := range resolver.Words(temporal.Strip(question)) {
		if !followUpFillers[w] {
			return false
		}
	}
	return true
}

func (c *Classifier) inDomain(q string, words []string, env Env) bool {
	if orderIDPattern.MatchString(q) {
		return true
	}
	for _, w := range words {
		for _, k := range businessKeywords {
			if w == k {
				return true
			}
		}
	}
	threshold := c.resolver.KeywordThreshold()
	for _, w := range words {
		if len([]rune(w)) < 4 || resolver.IsStopword(w) || everydayWords[w] {
			continue
		}
		for _, k := range businessKeywords {
			if samePrefix(w, k, 2) && resolver.Similarity(w, k) >= threshold {
				return true
			}
		}
	}
	_, ok := c.resolver.FindInText(q, env.Vocabulary.All())
	return ok
}

// samePrefix reports whether a and b open with the same n runes. Typos
// rarely hit the first letters of a word.
func samePrefix(a, b string, n int) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < n || len(rb) < n {
		return false
	}
	return string(ra[:n]) == string(rb[:n])
}

// filters resolves the agent, customer, category and status values named in
// the question. A named agent or customer phrase that resolves to nothing is
// returned as an EntityNotResolved.
func (c *Classifier) filters(q string, words []string, env Env) (Filters, *EntityNotResolved) {
	var f Filters
	exact := false
	fuzzy := make(map[sales.Dimension]resolver.Match)
	for _, d := range sales.ProductDimensions {
		c.findValue(q, d, env, &f, &exact, fuzzy)
	}
	c.findValue(q, sales.DimAgent, env, &f, &exact, fuzzy)
	c.findValue(q, sales.DimCustomer, env, &f, &exact, fuzzy)

	// Fuzzy hits only count when nothing matched exactly or the question
	// names the dimension.
	mentioned := make(map[sales.Dimension]bool)
	for _, w := range words {
		if d, ok := dimensionWords[w]; ok {
			mentioned[d] = true
		}
	}
	for d, m := range fuzzy {
		if !exact || mentioned[d] {
			f = f.With(d, m.Value)
		}
	}

	for _, w := range words {
		if s, ok := statusWords[w]; ok {
			f.Status = s
			break
		}
	}

	for _, p := range entityPhrases(q) {
		if f.Value(p.dim) != "" {
			continue
		}
		values := env.Vocabulary.Values(p.dim)
		if m, ok := c.resolver.ResolveValue(p.phrase, values); ok {
			f = f.With(p.dim, m.Value)
			continue
		}
		if p.possessive && (f.Agent != "" || f.Customer != "") {
			continue
		}
		miss := &EntityNotResolved{Dimension: p.dim, Phrase: p.phrase}
		for _, m := range c.resolver.Closest(p.phrase, values, 3) {
			miss.Candidates = append(miss.Candidates, m.Value)
		}
		return f, miss
	}
	return f, nil
}

func (c *Classifier) findValue(q string, d sales.Dimension, env Env, f *Filters, exact *bool, fuzzy map[sales.Dimension]resolver.Match) {
	m, ok := c.resolver.FindInText(q, env.Vocabulary.Values(d))
	if !ok {
		return
	}
	if m.Method == resolver.MethodFuzzy {
		fuzzy[d] = m
		return
	}
	*f = f.With(d, m.Value)
	*exact = true
}

type entityPhrase struct {
	dim        sales.Dimension
	phrase     string
	possessive bool
}

func entityPhrases(q string) []entityPhrase {
	var out []entityPhrase
	for _, m := range entityPhrasePattern.FindAllStringSubmatch(q, -1) {
		if phrase := trimPhrase(m[2]); phrase != "" {
			out = append(out, entityPhrase{dim: entityDimension[strings.ToLower(m[1])], phrase: phrase})
		}
	}
	for _, m := range possessivePattern.FindAllStringSubmatch(q, -1) {
		if phrase := trimPhrase(m[1]); phrase != "" {
			out = append(out, entityPhrase{dim: sales.DimCustomer, phrase: phrase, possessive: true})
		}
	}
	return out
}

// trimPhrase keeps the leading words of a candidate name, stopping at the
// first word that cannot be part of one.
func trimPhrase(raw string) string {
	var kept []string
	for _, w := range strings.Fields(raw) {
		w = strings.TrimSuffix(strings.Trim(w, ".,?!'&-"), "'s")
		if endsName(strings.ToLower(w)) {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func endsName(w string) bool {
	if w == "" || resolver.IsStopword(w) || entityFillers[w] || followUpFillers[w] {
		return true
	}
	if mostWords[w] || leastWords[w] || strongWords[w] || orderWords[w] {
		return true
	}
	if _, ok := statusWords[w]; ok {
		return true
	}
	if _, ok := dimensionWords[w]; ok {
		return true
	}
	_, ok := temporal.MonthOf(w)
	return ok
}

func (c *Classifier) predictionTarget(q, text string, env Env) (time.Time, bool, bool) {
	now := env.Now
	if now.IsZero() {
		now = time.Now()
	}
	explicit := hasPhrase(text, predictionPhrases)
	if !explicit && env.Latest.IsZero() {
		return time.Time{}, false, false
	}
	target, yearly := prediction.ExtractTarget(q, env.Latest, now)
	if explicit {
		return target, yearly, true
	}

	// Without a forecast keyword only a period that is still ahead of both
	// the clock and the data is a forecast. A past period with no rows
	// stays a lookup and reports no matching records.
	current := prediction.MonthStart(now)
	s := temporal.Parse(q)
	switch s.Kind {
	case temporal.KindYear:
		return target, yearly, s.Year > env.Latest.Year() && s.Year > now.Year()
	case temporal.KindMonth:
		if s.Year == 0 {
			return time.Time{}, false, false
		}
		month := time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC)
		return target, yearly, month.After(env.Latest) && month.After(current)
	case temporal.KindDate:
		return target, yearly, s.Date.After(env.Latest.AddDate(0, 1, -1)) && s.Date.After(current.AddDate(0, 1, -1))
	}
	return time.Time{}, false, false
}

func (c *Classifier) comparison(q string, words []string, f Filters, env Env) Comparison {
	d, explicit := firstDimension(words)
	var entities []string
	if explicit {
		entities = c.entitiesIn(q, env.Vocabulary.Values(d))
	} else {
		d = sales.DimAgent
		for _, cand := range sales.Dimensions {
			if found := c.entitiesIn(q, env.Vocabulary.Values(cand)); len(found) > len(entities) {
				d, entities = cand, found
			}
		}
	}
	return Comparison{Dimension: d, Entities: entities, Filters: f.With(d, "")}
}

// entitiesIn lists the values named in q, whole or by a distinctive part.
func (c *Classifier) entitiesIn(q string, values []string) []string {
	words := set(resolver.Words(q)...)
	var out []string
	for _, v := range values {
		if resolver.ContainsWord(q, v) {
			out = append(out, v)
			continue
		}
		for _, part := range resolver.Words(v) {
			if len([]rune(part)) > 2 && !resolver.IsStopword(part) && words[part] {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func soldDirection(text string, words []string) (Direction, bool) {
	switch {
	case hasPhrase(text, leastSoldPhrases):
		return DirectionLeast, true
	case hasPhrase(text, mostSoldPhrases):
		return DirectionMost, true
	}

	_, hasDim := firstDimension(words)
	quantity := hasAny(words, quantityWords)
	product := false
	for _, w := range words {
		if d, ok := dimensionWords[w]; ok && d.IsProduct() {
			product = true
		}
	}
	plainProduct := product && !hasAny(words, revenueWords) && !hasAny(words, orderWords) && !hasAny(words, rateWords)
	if (quantity && hasDim) || plainProduct {
		switch {
		case hasAny(words, leastWords):
			return DirectionLeast, true
		case hasAny(words, mostWords), plainProduct && hasAny(words, strongWords):
			return DirectionMost, true
		}
	}
	return "", false
}

func isOrderRanking(text string, words []string) bool {
	if hasPhrase(text, []string{"number of orders", "order count", "orders count", "count of orders"}) {
		return hasAny(words, mostWords) || hasAny(words, leastWords) || hasPhrase(text, []string{"by", "per", "wise"})
	}
	if !hasAny(words, orderWords) || hasAny(words, revenueWords) {
		return false
	}
	if hasAny(words, orderRankWords) {
		return true
	}
	return hasPhrase(text, []string{"orders by", "orders per", "sales by", "sales per"})
}

func isRevenueRanking(text string, words []string) bool {
	if hasAny(words, strongWords) {
		return true
	}
	_, hasDim := firstDimension(words)
	if !hasDim || !hasAny(words, revenueWords) {
		return false
	}
	return hasAny(words, mostWords) || hasAny(words, leastWords) ||
		hasPhrase(text, []string{"revenue by", "revenue per", "revenue wise", "income by", "turnover by"})
}

func revenueLookup(q string, f Filters) RevenueLookup {
	if id := OrderID(q); id != "" {
		return RevenueLookup{Scope: LookupOrderID, OrderID: id, Filters: f}
	}
	if f.Customer != "" {
		return RevenueLookup{Scope: LookupCustomer, Entity: f.Customer, Filters: f}
	}
	if f.Agent != "" {
		return RevenueLookup{Scope: LookupAgent, Entity: f.Agent, Filters: f}
	}
	s := temporal.Parse(q)
	switch s.Kind {
	case temporal.KindDate:
		return RevenueLookup{Scope: LookupDate, Entity: s.Label, Filters: f}
	case temporal.KindMonth:
		return RevenueLookup{Scope: LookupMonth, Entity: s.Label, Filters: f}
	case temporal.KindYear:
		return RevenueLookup{Scope: LookupYear, Entity: s.Label, Filters: f}
	}
	return RevenueLookup{Scope: LookupAll, Filters: f}
}

func statistic(text string, words []string, f Filters) GenericStatistic {
	col := Column("")
	switch {
	case hasAny(words, revenueWords):
		col = ColumnRevenue
	case hasAny(words, rateWords):
		col = ColumnRate
	case hasAny(words, quantityWords):
		col = ColumnQuantity
	}
	orDefault := func(c Column) Column {
		if col == "" {
			return c
		}
		return col
	}

	counting := hasPhrase(text, []string{"how many", "number of", "count", "total"})
	switch {
	case hasAny(words, avgWords):
		return GenericStatistic{Operation: OpAvg, Column: orDefault(ColumnQuantity), Filters: f}
	case hasAny(words, set("maximum", "max", "highest", "largest", "biggest")):
		return GenericStatistic{Operation: OpMax, Column: orDefault(ColumnQuantity), Filters: f}
	case hasAny(words, set("minimum", "min", "lowest", "smallest")):
		return GenericStatistic{Operation: OpMin, Column: orDefault(ColumnQuantity), Filters: f}
	case col == ColumnQuantity && (counting || hasAny(words, set("sum", "sold"))):
		return GenericStatistic{Operation: OpSum, Column: ColumnQuantity, Filters: f}
	case counting && col == "":
		return GenericStatistic{Operation: OpCount, Column: ColumnOrders, Filters: f}
	case hasAny(words, set("sum", "total")) && col != "":
		return GenericStatistic{Operation: OpSum, Column: col, Filters: f}
	}
	return GenericStatistic{Operation: OpSummary, Column: ColumnOrders, Filters: f}
}

// firstDimension returns the first dimension named in words.
func firstDimension(words []string) (sales.Dimension, bool) {
	for _, w := range words {
		if d, ok := dimensionWords[w]; ok {
			return d, true
		}
	}
	return "", false
}

// detectDimension picks the grouping dimension: the first one named that is
// not already pinned by a filter, else the first one named, else fallback.
func detectDimension(words []string, f Filters, fallback sales.Dimension) sales.Dimension {
	var named []sales.Dimension
	for _, w := range words {
		if d, ok := dimensionWords[w]; ok {
			named = append(named, d)
		}
	}
	for _, d := range named {
		if f.Value(d) == "" {
			return d
		}
	}
	if len(named) > 0 {
		return named[0]
	}
	return fallback
}
