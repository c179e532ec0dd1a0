package query

import (
	"time"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
)

// Strategy names the step of the pipeline that produced an answer.
type Strategy string

const (
	// StrategyDeterministic executes the classified intent.
	StrategyDeterministic Strategy = "deterministic"
	// StrategyStatistic reports the summary statistic over the same rows.
	StrategyStatistic Strategy = "fallback_statistic"
	// StrategyRetrieval answers from the closest indexed orders.
	StrategyRetrieval Strategy = "retrieval"
	// StrategyNone marks answers that are only a problem report.
	StrategyNone Strategy = "none"
)

// ProblemCode classifies an answer the user has to act on.
type ProblemCode string

const (
	ProblemDataUnavailable     ProblemCode = "data_unavailable"
	ProblemEntityNotResolved   ProblemCode = "entity_not_resolved"
	ProblemInsufficientHistory ProblemCode = "insufficient_history"
	ProblemOutOfDomain         ProblemCode = "out_of_domain"
	ProblemAmbiguousFollowUp   ProblemCode = "ambiguous_follow_up"
	ProblemNoMatchingRecords   ProblemCode = "no_matching_records"
	ProblemUnanswered          ProblemCode = "unanswered"
)

// Problem explains why an answer carries no (or no useful) figures.
type Problem struct {
	Code       ProblemCode `json:"code"`
	Message    string      `json:"message"`
	Candidates []string    `json:"candidates,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Answer is the response to one question.
type Answer struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	// Effective is the question actually answered after follow-up handling.
	Effective   string            `json:"effective_question,omitempty"`
	Summary     string            `json:"summary"`
	Explanation string            `json:"explanation,omitempty"`
	Detail      *aggregate.Result `json:"detail,omitempty"`
	Angle       aggregate.Angle   `json:"angle,omitempty"`
	Insight     string            `json:"insight,omitempty"`
	Strategy    Strategy          `json:"strategy"`
	Intent      intent.Kind       `json:"intent,omitempty"`
	Problem     *Problem          `json:"problem,omitempty"`
	Sources     []retrieval.Hit   `json:"sources,omitempty"`
	Stale       bool              `json:"stale"`
	Duration    time.Duration     `json:"-"`

	filters intent.Filters
	// remembered is the question a later follow-up merges with.
	remembered string
}

// Text is the answer as shown to a user: the explanation when there is
// one, the deterministic summary otherwise.
func (a *Answer) Text() string {
	if a.Explanation != "" {
		return a.Explanation
	}
	return a.Summary
}

// RowCount is the number of rows behind the answer.
func (a *Answer) RowCount() int {
	if a.Detail == nil {
		return 0
	}
	return a.Detail.RowCount
}

func (a *Answer) problemCode() string {
	if a.Problem == nil {
		return ""
	}
	return string(a.Problem.Code)
}
