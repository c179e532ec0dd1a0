// Package resolver matches free-text phrases against the values present in
// the dataset, tolerating case differences, partial names and misspellings.
package resolver

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// DefaultKeywordThreshold applies to small, fixed keyword vocabularies.
	DefaultKeywordThreshold = 0.6
	// DefaultValueThreshold applies to values pulled live from the dataset.
	DefaultValueThreshold = 0.75

	minContainment = 3
	scoreEpsilon   = 1e-9
)

// Method records how a match was made.
type Method string

const (
	MethodExact     Method = "exact"
	MethodContains  Method = "contains"
	MethodNamePart  Method = "name_part"
	MethodFuzzy     Method = "fuzzy"
	MethodCorrected Method = "corrected"
)

// Match is a resolved candidate value.
type Match struct {
	Value  string  `json:"value"`
	Score  float64 `json:"score"`
	Method Method  `json:"method"`
}

// Resolver resolves phrases to canonical dataset values.
type Resolver struct {
	keywordThreshold float64
	valueThreshold   float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKeywordThreshold overrides the loose threshold.
func WithKeywordThreshold(t float64) Option {
	return func(r *Resolver) { r.keywordThreshold = t }
}

// WithValueThreshold overrides the strict threshold.
func WithValueThreshold(t float64) Option {
	return func(r *Resolver) { r.valueThreshold = t }
}

// New creates a Resolver with the default thresholds.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		keywordThreshold: DefaultKeywordThreshold,
		valueThreshold:   DefaultValueThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// KeywordThreshold returns the loose threshold.
func (r *Resolver) KeywordThreshold() float64 { return r.keywordThreshold }

// ValueThreshold returns the strict threshold.
func (r *Resolver) ValueThreshold() float64 { return r.valueThreshold }

// Similarity returns the difflib ratio of a and b, compared case-insensitively
// rune by rune. It is 1.0 for identical strings and 0.0 when nothing matches.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Resolve maps phrase onto one of candidates. It tries an exact match, then
// containment in either direction, then the best fuzzy score at or above
// threshold. It returns false rather than guessing below the threshold.
func (r *Resolver) Resolve(phrase string, candidates []string, threshold float64) (Match, bool) {
	p := normalize(phrase)
	if p == "" || len(candidates) == 0 {
		return Match{}, false
	}

	for _, c := range candidates {
		if normalize(c) == p {
			return Match{Value: c, Score: 1, Method: MethodExact}, true
		}
	}

	for _, c := range candidates {
		nc := normalize(c)
		if nc == "" {
			continue
		}
		if containsEither(p, nc) {
			return Match{Value: c, Score: Similarity(p, nc), Method: MethodContains}, true
		}
	}

	best, ok := r.best(p, candidates)
	if !ok || best.Score+scoreEpsilon < threshold {
		return Match{}, false
	}
	return best, true
}

// ResolveKeyword resolves against a fixed keyword vocabulary.
func (r *Resolver) ResolveKeyword(phrase string, keywords []string) (Match, bool) {
	return r.Resolve(phrase, keywords, r.keywordThreshold)
}

// ResolveValue resolves against live dataset values.
func (r *Resolver) ResolveValue(phrase string, values []string) (Match, bool) {
	return r.Resolve(phrase, values, r.valueThreshold)
}

// Closest returns up to n candidates ordered by similarity, best first.
// It is used to suggest alternatives when nothing resolves.
func (r *Resolver) Closest(phrase string, candidates []string, n int) []Match {
	p := normalize(phrase)
	scored := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Match{Value: c, Score: Similarity(p, normalize(c)), Method: MethodFuzzy})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if n > 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

func (r *Resolver) best(p string, candidates []string) (Match, bool) {
	var best Match
	found := false
	for _, c := range candidates {
		s := Similarity(p, normalize(c))
		if !found || s > best.Score {
			best = Match{Value: c, Score: s, Method: MethodFuzzy}
			found = true
		}
	}
	return best, found
}

func containsEither(a, b string) bool {
	short, long := a, b
	if len([]rune(short)) > len([]rune(long)) {
		short, long = long, short
	}
	if len([]rune(short)) < minContainment {
		return false
	}
	return strings.Contains(long, short)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
