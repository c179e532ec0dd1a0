package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/intent"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
	"github.com/ziadkadry99/salesiq/internal/temporal"
)

var errNoSummary = errors.New("result has no summary")

// turn is everything the strategies may read for one question.
type turn struct {
	question string
	in       intent.Intent
	rows     []cleaner.Record
	scope    temporal.Scope
}

// outcome is what a strategy contributes to an Answer.
type outcome struct {
	summary string
	detail  *aggregate.Result
	sources []retrieval.Hit
}

type step struct {
	name Strategy
	run  func(ctx context.Context, t *turn) (outcome, error)
}

func (e *Engine) defaultSteps() []step {
	return []step{
		{StrategyDeterministic, e.deterministic},
		{StrategyStatistic, e.statistic},
		{StrategyRetrieval, e.retrieve},
	}
}

func (e *Engine) deterministic(_ context.Context, t *turn) (outcome, error) {
	return e.compute(t, t.in)
}

func (e *Engine) statistic(_ context.Context, t *turn) (outcome, error) {
	return e.compute(t, intent.GenericStatistic{
		Operation: intent.OpSummary,
		Filters:   intent.FiltersOf(t.in),
	})
}

func (e *Engine) compute(t *turn, in intent.Intent) (outcome, error) {
	res, err := e.aggregator.Aggregate(t.rows, in)
	if err != nil {
		return outcome{}, err
	}
	if res.Kind != aggregate.KindPrediction {
		res.Scope = t.scope.Label
	}
	summary := aggregate.Summarize(res, e.formatter)
	if summary == "" {
		return outcome{}, fmt.Errorf("%s: %w", in.Kind(), errNoSummary)
	}
	return outcome{summary: summary, detail: &res}, nil
}

func (e *Engine) retrieve(ctx context.Context, t *turn) (outcome, error) {
	hits, err := e.index.Search(ctx, t.question, e.topK)
	if err != nil {
		return outcome{}, err
	}
	if len(hits) == 0 {
		return outcome{}, errors.New("no indexed orders")
	}

	if e.explainer != nil {
		text, err := e.explainer.Answer(ctx, t.question, hits)
		if err == nil {
			return outcome{summary: text, sources: hits}, nil
		}
		e.logger.Warn().Err(err).Msg("retrieval answer failed, listing orders")
	}

	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = h.Content
	}
	return outcome{
		summary: "These orders look most relevant: " + strings.Join(lines, " "),
		sources: hits,
	}, nil
}
