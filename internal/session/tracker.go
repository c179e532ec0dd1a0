package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/resolver"
	"github.com/ziadkadry99/salesiq/internal/sales"
	"github.com/ziadkadry99/salesiq/internal/temporal"
)

// Tracker wraps a Store with per-session turn handling.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker over store. A nil now uses the wall clock.
func NewTracker(store Store, now func() time.Time) *Tracker {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{store: store, now: now}
}

// Store returns the underlying session store.
func (t *Tracker) Store() Store { return t.store }

// Do runs fn with the session's context while holding the session lock, and
// saves the context when fn succeeds. Unknown sessions start empty.
func (t *Tracker) Do(ctx context.Context, sessionID string, fn func(c *Context) error) error {
	unlock, err := t.store.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("locking session %s: %w", sessionID, err)
	}
	defer unlock()

	c, err := t.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		c = NewContext(sessionID, t.now())
	} else if err != nil {
		return fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	if err := fn(c); err != nil {
		return err
	}
	c.UpdatedAt = t.now()
	if err := t.store.Put(ctx, c); err != nil {
		return fmt.Errorf("saving session %s: %w", sessionID, err)
	}
	return nil
}

// Effective is the question the pipeline should answer after follow-up
// handling.
type Effective struct {
	Text string
	// Merged is set when Text combines the previous and current question.
	Merged bool
	// Retry is set when an affirmative re-asked a corrected prior question.
	Retry bool
	// Clarify is set when the question cannot be answered without more
	// input from the user.
	Clarify bool
	// Suggestion is a rephrasing to offer alongside a clarification.
	Suggestion string
	// Pronoun is set when a pronoun was bound to the last entity.
	Pronoun bool
}

var followUpPhrases = []string{
	"what about", "how about", "and for", "show me", "same for", "also",
	"only in", "in ", "for ", "during", "within",
}

var leadPhrasePattern = regexp.MustCompile(`(?i)^\s*(?:and\s+)?(?:what about|how about|and for|same for|show me|also)\s*`)

var topicGroups = map[string][]string{
	"weave":       {"weave", "weaves", "plain", "satin", "linen", "denim", "crepe", "twill", "spandex"},
	"composition": {"composition", "cotton", "polyester"},
	"quality":     {"quality", "premium", "standard", "economy"},
	"agent":       {"agent", "agents", "salesman", "salesperson"},
	"customer":    {"customer", "customers", "client", "buyer"},
	"sales":       {"sales", "sale", "revenue", "quantity", "rate", "growth", "trend", "sold", "most", "orders", "order"},
	"status":      {"status", "confirmed", "pending", "cancelled", "declined", "processed"},
}

var groupDimension = map[string]sales.Dimension{
	"weave":       sales.DimWeave,
	"composition": sales.DimComposition,
	"quality":     sales.DimQuality,
	"agent":       sales.DimAgent,
	"customer":    sales.DimCustomer,
	"status":      sales.DimStatus,
}

// Topics returns the topic groups question touches. Groups backed by a
// dimension are extended with the live values of that dimension.
func Topics(question string, vocab *sales.Vocabulary) map[string]bool {
	text := resolver.CorrectMisspellings(question)
	found := make(map[string]bool)
	for group, words := range topicGroups {
		if hasAnyPhrase(text, words) {
			found[group] = true
			continue
		}
		if d, ok := groupDimension[group]; ok && hasAnyPhrase(text, vocab.Values(d)) {
			found[group] = true
		}
	}
	return found
}

func hasAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && resolver.ContainsWord(text, p) {
			return true
		}
	}
	return false
}

// standalonePattern marks questions that open a fresh query.
var standalonePattern = regexp.MustCompile(`(?i)^\s*(?:how|which|who|whose|when|why|list|give|predict|forecast|compare|tell|what\s+(?:is|are|was|were|will|did|does))\b`)

// IsFollowUp reports whether question is shaped like a follow-up: a
// continuation phrase, a temporal filter or five words or fewer. Questions
// that open with their own interrogative stand alone.
func IsFollowUp(question string) bool {
	if leadPhrasePattern.MatchString(question) {
		return true
	}
	if standalonePattern.MatchString(question) {
		return false
	}
	if len(resolver.Words(question)) <= 5 {
		return true
	}
	lower := strings.ToLower(question)
	for _, p := range followUpPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Related reports whether two questions share at least one topic group.
func Related(a, b string, vocab *sales.Vocabulary) bool {
	ta := Topics(a, vocab)
	for g := range Topics(b, vocab) {
		if ta[g] {
			return true
		}
	}
	return false
}

var pronounPattern = regexp.MustCompile(`(?i)\b(he|his|him|she|her|hers|they|their|them)\b`)

// ResolveFollowUp turns question into the question the pipeline answers,
// using c for the previous turn.
func ResolveFollowUp(question string, c *Context, vocab *sales.Vocabulary) Effective {
	question = strings.TrimSpace(question)
	prior := ""
	if c != nil {
		prior = strings.TrimSpace(c.LastQuestion)
	}

	if intent.IsAffirmative(question) {
		if prior == "" {
			return Effective{Text: question, Clarify: true}
		}
		corrected := resolver.CorrectMisspellings(prior)
		if corrected == prior {
			return Effective{Text: question, Clarify: true, Suggestion: prior}
		}
		return Effective{Text: corrected, Retry: true}
	}

	if c != nil && c.LastEntity.Value != "" && pronounPattern.MatchString(question) {
		return Effective{Text: bindPronouns(question, c.LastEntity), Pronoun: true}
	}

	// A verbatim repeat is a new ask of the same question, not a follow-up.
	if prior == "" || Fingerprint(question) == Fingerprint(prior) ||
		!IsFollowUp(question) || !Related(prior, question, vocab) {
		return Effective{Text: question}
	}

	base := prior
	if _, ok := temporal.ParseFollowUp(question); ok || !temporal.Parse(question).IsZero() {
		base = temporal.Strip(prior)
	}
	rest := TrimLeadPhrase(question)
	if rest == "" {
		return Effective{Text: prior}
	}
	return Effective{Text: strings.TrimSpace(base + " " + rest), Merged: true}
}

// TrimLeadPhrase drops a leading continuation phrase such as "what about".
func TrimLeadPhrase(question string) string {
	return strings.TrimSpace(leadPhrasePattern.ReplaceAllString(question, ""))
}

func bindPronouns(question string, e Entity) string {
	return pronounPattern.ReplaceAllStringFunc(question, func(p string) string {
		switch strings.ToLower(p) {
		case "his", "her", "hers", "their":
			return fmt.Sprintf("%s %s's", e.Dimension, e.Value)
		default:
			return fmt.Sprintf("%s %s", e.Dimension, e.Value)
		}
	})
}

var punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Fingerprint normalises question for repeat detection.
func Fingerprint(question string) string {
	s := punctPattern.ReplaceAllString(strings.ToLower(question), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Angle bumps the repeat counter for fingerprint and returns the angle to
// present. The first ask has none.
func (c *Context) Angle(fingerprint string) (aggregate.Angle, bool) {
	if c.Repeats == nil {
		c.Repeats = make(map[string]int)
	}
	c.Repeats[fingerprint]++
	n := c.Repeats[fingerprint] - 1
	if n == 0 {
		return "", false
	}
	return aggregate.Angles[(n-1)%len(aggregate.Angles)], true
}

// Remember records a completed turn. The last entity only changes when the
// turn named an agent or customer.
func (c *Context) Remember(question, answer string, f intent.Filters) {
	c.LastQuestion = question
	c.LastAnswer = answer
	switch {
	case f.Agent != "":
		c.LastEntity = Entity{Dimension: sales.DimAgent, Value: f.Agent}
	case f.Customer != "":
		c.LastEntity = Entity{Dimension: sales.DimCustomer, Value: f.Customer}
	}
}
