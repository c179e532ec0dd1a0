// Package query answers free-text sales questions. Each question runs
// against one immutable snapshot through an ordered list of strategies, and
// the answer records which strategy produced it.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/audit"
	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/explain"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/prediction"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
	"github.com/ziadkadry99/salesiq/internal/sales"
	"github.com/ziadkadry99/salesiq/internal/session"
	"github.com/ziadkadry99/salesiq/internal/temporal"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// ExampleQuestions are offered when a question is outside the dataset.
var ExampleQuestions = []string{
	"Which weave sold the most in May 2025?",
	"Who is the top agent by revenue?",
	"How many orders were declined this month?",
	"What is the total revenue for 2025?",
	"Predict sales for next month",
}

// SnapshotSource yields the dataset snapshot a question is answered from.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*sales.Snapshot, error)
}

// Aggregator executes an intent over cleaned rows.
type Aggregator interface {
	Aggregate(rows []cleaner.Record, in intent.Intent) (aggregate.Result, error)
}

// Options configures an Engine. Data and Tracker are required.
type Options struct {
	Data       SnapshotSource
	Tracker    *session.Tracker
	Classifier *intent.Classifier
	Aggregator Aggregator
	Formatter  aggregate.Formatter
	// Explainer rephrases answers and drafts retrieval answers. Nil keeps
	// every answer deterministic.
	Explainer *explain.Explainer
	// Rephrase enables rephrasing of deterministic answers.
	Rephrase bool
	Index    *retrieval.Index
	TopK     int
	Audit    *audit.Store
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Engine is the query pipeline. It is safe for concurrent use.
type Engine struct {
	data       SnapshotSource
	tracker    *session.Tracker
	classifier *intent.Classifier
	aggregator Aggregator
	formatter  aggregate.Formatter
	explainer  *explain.Explainer
	rephrase   bool
	index      *retrieval.Index
	topK       int
	audit      *audit.Store
	logger     zerolog.Logger
	now        func() time.Time
	steps      []step
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		data:       opts.Data,
		tracker:    opts.Tracker,
		classifier: opts.Classifier,
		aggregator: opts.Aggregator,
		formatter:  opts.Formatter,
		explainer:  opts.Explainer,
		rephrase:   opts.Rephrase,
		index:      opts.Index,
		topK:       opts.TopK,
		audit:      opts.Audit,
		logger:     opts.Logger.With().Str("component", "query").Logger(),
		now:        opts.Now,
	}
	if e.classifier == nil {
		e.classifier = intent.NewClassifier(nil)
	}
	if e.aggregator == nil {
		e.aggregator = aggregate.NewEngine()
	}
	if e.formatter.Currency == "" {
		e.formatter = aggregate.NewFormatter("")
	}
	if e.topK <= 0 {
		e.topK = 5
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	e.steps = e.defaultSteps()
	return e
}

// Tracker returns the session tracker the engine writes to.
func (e *Engine) Tracker() *session.Tracker { return e.tracker }

// Ask answers question within sessionID. An empty sessionID starts a new
// session. Errors are only returned for blank questions and session store
// failures; everything else is reported through Answer.Problem.
func (e *Engine) Ask(ctx context.Context, question, sessionID string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	start := time.Now()
	var ans *Answer
	err := e.tracker.Do(ctx, sessionID, func(c *session.Context) error {
		ans = e.answer(ctx, question, c)
		ans.SessionID = sessionID
		e.remember(ctx, c, ans)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ans.Duration = time.Since(start)

	e.logger.Info().
		Str("session_id", sessionID).
		Str("intent", string(ans.Intent)).
		Str("strategy", string(ans.Strategy)).
		Str("problem", ans.problemCode()).
		Int("rows", ans.RowCount()).
		Bool("stale", ans.Stale).
		Dur("took", ans.Duration).
		Msg("answered")

	e.record(ctx, ans)
	return ans, nil
}

func (e *Engine) answer(ctx context.Context, question string, c *session.Context) *Answer {
	now := e.now()
	question = temporal.ReplaceCurrentMonth(question, now)
	ans := &Answer{Question: question, Strategy: StrategyNone}

	snap, err := e.data.Snapshot(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("no snapshot available")
		ans.Summary = "Sales data is unavailable right now, so I can't answer reliably. Please try again shortly."
		ans.Problem = &Problem{Code: ProblemDataUnavailable, Message: err.Error()}
		return ans
	}
	ans.Stale = snap.Stale

	rows := cleaner.Clean(snap.Records)
	vocab := sales.NewVocabulary(snap.Records)

	eff := session.ResolveFollowUp(question, c, vocab)
	ans.Effective = eff.Text
	// A merged question already carries the previous turn, so the raw one
	// is kept and context never spans more than two turns.
	ans.remembered = eff.Text
	if eff.Merged {
		ans.remembered = question
	}
	if eff.Clarify {
		e.clarify(ans, eff.Suggestion)
		return ans
	}

	env := intent.Env{Vocabulary: vocab, Latest: prediction.Latest(prediction.Monthly(rows)), Now: now}
	in := e.classifier.Classify(eff.Text, c.LastQuestion, env)
	ans.Intent = in.Kind()
	ans.filters = intent.FiltersOf(in)

	switch v := in.(type) {
	case intent.OutOfDomain:
		ans.Summary = "I can only answer questions about the sales data: orders, weaves, qualities, compositions, agents, customers, revenue and forecasts. Try: " +
			strings.Join(ExampleQuestions, " / ")
		ans.Problem = &Problem{Code: ProblemOutOfDomain, Message: "question does not mention the sales data", Candidates: ExampleQuestions}
		return ans
	case intent.FollowUp:
		e.clarify(ans, strings.TrimSpace(temporal.Strip(c.LastQuestion)+" "+session.TrimLeadPhrase(eff.Text)))
		return ans
	case intent.EntityNotResolved:
		ans.Summary = fmt.Sprintf("I couldn't find %s %q in the data.", v.Dimension, v.Phrase)
		if len(v.Candidates) > 0 {
			ans.Summary += fmt.Sprintf(" Did you mean %s?", strings.Join(v.Candidates, ", "))
		}
		ans.Problem = &Problem{
			Code:       ProblemEntityNotResolved,
			Message:    fmt.Sprintf("no %s matches %q", v.Dimension, v.Phrase),
			Candidates: v.Candidates,
		}
		return ans
	}

	t := &turn{question: eff.Text, in: in, rows: rows}
	if _, ok := in.(intent.Prediction); !ok {
		t.rows, t.scope = temporal.Filter(rows, eff.Text)
	}

	out, strategy, ok := e.run(ctx, t)
	if !ok {
		ans.Summary = "I couldn't compute an answer to that question. Try naming a weave, agent, customer or period."
		ans.Problem = &Problem{Code: ProblemUnanswered, Message: "every strategy failed"}
		return ans
	}
	ans.Strategy = strategy
	ans.Summary = out.summary
	ans.Detail = out.detail
	ans.Sources = out.sources

	if res := out.detail; res != nil {
		switch {
		case res.Error != nil && res.Error.Code == aggregate.ErrorInsufficientHistory:
			ans.Problem = &Problem{Code: ProblemInsufficientHistory, Message: res.Error.Message}
		case res.Kind != aggregate.KindPrediction && res.RowCount == 0:
			ans.Problem = &Problem{Code: ProblemNoMatchingRecords, Message: "no rows match the question"}
			if !t.scope.IsZero() {
				ans.Summary = fmt.Sprintf("No matching records %s.", t.scope.Label)
			}
		default:
			if angle, ok := c.Angle(session.Fingerprint(eff.Text)); ok {
				ans.Angle = angle
				ans.Insight = aggregate.Insight(angle, res.Details, e.formatter)
				if ans.Insight != "" {
					ans.Summary += " " + ans.Insight
				}
			}
		}
	}

	if e.rephrase && e.explainer != nil && out.detail != nil && ans.Problem == nil {
		text, err := e.explainer.Rephrase(ctx, explain.Facts{Question: eff.Text, Summary: ans.Summary})
		if err != nil {
			e.logger.Warn().Err(err).Msg("keeping deterministic summary")
		} else {
			ans.Explanation = text
		}
	}
	return ans
}

// run tries each strategy in order. A failure or panic moves on to the
// next one.
func (e *Engine) run(ctx context.Context, t *turn) (outcome, Strategy, bool) {
	for _, s := range e.steps {
		out, err := e.try(ctx, s, t)
		if err == nil {
			return out, s.name, true
		}
		if !errors.Is(err, retrieval.ErrDisabled) {
			e.logger.Warn().Err(err).Str("strategy", string(s.name)).Msg("strategy failed")
		}
	}
	return outcome{}, StrategyNone, false
}

func (e *Engine) try(ctx context.Context, s step, t *turn) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", s.name, p)
		}
	}()
	return s.run(ctx, t)
}

func (e *Engine) clarify(ans *Answer, suggestion string) {
	ans.Intent = intent.KindFollowUp
	ans.Problem = &Problem{Code: ProblemAmbiguousFollowUp, Message: "the question depends on an earlier one that could not be identified", Suggestion: suggestion}
	if suggestion != "" {
		ans.Summary = fmt.Sprintf("Did you mean %q? Please ask the full question.", suggestion)
		return
	}
	ans.Summary = "I'm not sure what that refers to. Could you ask the full question, for example \"" + ExampleQuestions[0] + "\"?"
}

// remember updates the session after a turn. Clarifications and outages
// leave the previous question in place so it can still be followed up.
func (e *Engine) remember(ctx context.Context, c *session.Context, ans *Answer) {
	if code := ans.problemCode(); code != string(ProblemAmbiguousFollowUp) && code != string(ProblemDataUnavailable) {
		c.Remember(ans.remembered, ans.Summary, ans.filters)
	}

	meta, _ := json.Marshal(map[string]string{
		"intent":   string(ans.Intent),
		"strategy": string(ans.Strategy),
		"problem":  ans.problemCode(),
		"angle":    string(ans.Angle),
	})
	store := e.tracker.Store()
	for _, m := range []session.Message{
		{SessionID: ans.SessionID, Role: session.RoleUser, Content: ans.Question},
		{SessionID: ans.SessionID, Role: session.RoleAssistant, Content: ans.Text(), Metadata: string(meta)},
	} {
		if err := store.AppendMessage(ctx, m); err != nil {
			e.logger.Warn().Err(err).Str("session_id", ans.SessionID).Msg("append message")
		}
	}
}

func (e *Engine) record(ctx context.Context, ans *Answer) {
	if e.audit == nil {
		return
	}
	_, err := e.audit.Log(ctx, audit.Entry{
		SessionID:         ans.SessionID,
		Question:          ans.Question,
		EffectiveQuestion: ans.Effective,
		Intent:            string(ans.Intent),
		Strategy:          string(ans.Strategy),
		Summary:           ans.Summary,
		ProblemCode:       ans.problemCode(),
		Angle:             string(ans.Angle),
		RowCount:          ans.RowCount(),
		Stale:             ans.Stale,
		Duration:          ans.Duration,
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("audit log")
	}
}
