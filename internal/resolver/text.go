package resolver

import (
	"regexp"
	"strings"
	"unicode"
)

// misspellings is the fixed table of domain typos corrected before any
// fuzzy matching takes place.
var misspellings = map[string]string{
	"kolity":      "quality",
	"qualety":     "quality",
	"qaulity":     "quality",
	"qulaity":     "quality",
	"kumposison":  "composition",
	"komposition": "composition",
	"composision": "composition",
	"weav":        "weave",
	"weev":        "weave",
	"agnet":       "agent",
	"cusomer":     "customer",
	"custmer":     "customer",
	"salse":       "sales",
	"seles":       "sales",
	"preium":      "premium",
	"standrd":     "standard",
	"econmy":      "economy",
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// CorrectMisspellings replaces known typos word by word. Corrected words are
// lower-cased; everything else is left untouched.
func CorrectMisspellings(text string) string {
	return wordPattern.ReplaceAllStringFunc(text, func(w string) string {
		if fixed, ok := misspellings[strings.ToLower(w)]; ok {
			return fixed
		}
		return w
	})
}

// Words splits text into lower-cased word tokens.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// stopwords never take part in name-part or fuzzy matching against live
// values; they are either function words or the engine's own vocabulary.
var stopwords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "did", "do", "does", "for", "from",
	"give", "has", "have", "how", "i", "in", "is", "it", "its", "me", "many", "much", "my",
	"of", "on", "only", "or", "over", "please", "show", "tell", "the", "their", "this",
	"to", "was", "we", "were", "what", "when", "which", "who", "whose", "why", "will", "with",
	"about", "all", "any", "each", "during", "within", "month", "year", "week", "day", "date",
	"sales", "sale", "sold", "sell", "selling", "revenue", "order", "orders", "total", "sum",
	"count", "number", "average", "mean", "most", "least", "top", "best", "worst", "highest",
	"lowest", "agent", "agents", "customer", "customers", "client", "buyer", "weave", "quality",
	"composition", "status", "quantity", "units", "rate", "price", "predict", "forecast",
	"compare", "versus", "performing", "performance", "confirmed", "declined", "pending",
	"processed", "trend", "growth", "next", "last", "between", "than", "more", "less",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsStopword reports whether w is ignored when matching live values.
func IsStopword(w string) bool {
	return stopwords[strings.ToLower(w)]
}

// FindInText looks for any of candidates inside a free-text question. A
// whole-phrase occurrence wins, then a distinctive name part longer than two
// characters, then the best fuzzy match of a one to three word window at the
// strict threshold.
func (r *Resolver) FindInText(question string, candidates []string) (Match, bool) {
	q := normalize(question)
	if q == "" || len(candidates) == 0 {
		return Match{}, false
	}

	var best Match
	found := false
	for _, c := range candidates {
		nc := normalize(c)
		if nc == "" || !containsWord(q, nc) {
			continue
		}
		if !found || len(nc) > len(normalize(best.Value)) {
			best = Match{Value: c, Score: 1, Method: MethodExact}
			found = true
		}
	}
	if found {
		return best, true
	}

	words := Words(question)
	wordSet := toSet(words...)
	for _, c := range candidates {
		for _, part := range Words(c) {
			if len([]rune(part)) <= 2 || stopwords[part] {
				continue
			}
			if wordSet[part] {
				return Match{Value: c, Score: Similarity(part, c), Method: MethodNamePart}, true
			}
		}
	}

	var content []string
	for _, w := range words {
		if !stopwords[w] && len([]rune(w)) >= 3 {
			content = append(content, w)
		}
	}
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(content); i++ {
			window := strings.Join(content[i:i+n], " ")
			for _, c := range candidates {
				s := Similarity(window, normalize(c))
				if s+scoreEpsilon >= r.valueThreshold && (!found || s > best.Score) {
					best = Match{Value: c, Score: s, Method: MethodFuzzy}
					found = true
				}
			}
		}
	}
	return best, found
}

// containsWord reports whether phrase occurs in text on word boundaries.
func containsWord(text, phrase string) bool {
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(phrase)
		if boundary(text, i-1) && boundary(text, j) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := rune(s[i])
	return !unicode.IsLetter(c) && !unicode.IsDigit(c)
}

// ContainsWord reports whether phrase occurs in text as whole words,
// ignoring case.
func ContainsWord(text, phrase string) bool {
	return containsWord(normalize(text), normalize(phrase))
}
