package sales

import (
	"sort"
	"strings"
)

// Vocabulary is the set of distinct categorical values present in a
// snapshot, keyed by dimension. Values keep the casing of their first
// occurrence and are sorted case-insensitively.
type Vocabulary struct {
	values map[Dimension][]string
}

// NewVocabulary collects the distinct non-empty values of every dimension.
func NewVocabulary(records []Record) *Vocabulary {
	seen := make(map[Dimension]map[string]bool, len(Dimensions))
	values := make(map[Dimension][]string, len(Dimensions))
	for _, d := range Dimensions {
		seen[d] = make(map[string]bool)
	}
	for _, r := range records {
		for _, d := range Dimensions {
			v := strings.TrimSpace(d.Value(r))
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if seen[d][key] {
				continue
			}
			seen[d][key] = true
			values[d] = append(values[d], v)
		}
	}
	for d := range values {
		sort.Slice(values[d], func(i, j int) bool {
			return strings.ToLower(values[d][i]) < strings.ToLower(values[d][j])
		})
	}
	return &Vocabulary{values: values}
}

// Values returns the distinct values of d.
func (v *Vocabulary) Values(d Dimension) []string {
	if v == nil {
		return nil
	}
	return v.values[d]
}

// All returns every distinct value across all dimensions.
func (v *Vocabulary) All() []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, d := range Dimensions {
		out = append(out, v.values[d]...)
	}
	return out
}
