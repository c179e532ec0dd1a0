// Package explain rephrases verified answers with a generative model. The
// model only ever sees facts that were already computed; it is never asked
// to do arithmetic over rows.
package explain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/salesiq/internal/llm"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
)

// ErrUnverified is returned when a rephrasing drops or alters a number
// stated in the verified summary.
var ErrUnverified = errors.New("rephrased answer does not preserve the verified figures")

const systemPrompt = `You rephrase answers about a fabric sales dataset for a business user.
Use only the facts given. Never add, remove, round or recompute numbers; copy every figure exactly as written.
Answer in at most three sentences of plain prose.`

const fallbackPrompt = `You answer questions about a fabric sales dataset using only the orders listed.
If the orders do not answer the question, say so plainly. Do not estimate totals or invent figures.
Answer in at most three sentences of plain prose.`

// Facts is everything the model may see for one answer.
type Facts struct {
	Question string
	Summary  string
	Insight  string
}

// Explainer wraps an llm.Provider with a per-call timeout.
type Explainer struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	logger   zerolog.Logger
}

// New creates an Explainer. A zero timeout means 20 seconds.
func New(provider llm.Provider, model string, timeout time.Duration, logger zerolog.Logger) *Explainer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Explainer{
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger.With().Str("component", "explain").Logger(),
	}
}

// Rephrase returns a fluent version of facts.Summary. The result is
// rejected unless it repeats every number of the summary.
func (e *Explainer) Rephrase(ctx context.Context, facts Facts) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", facts.Question)
	fmt.Fprintf(&b, "Verified answer: %s\n", facts.Summary)
	if facts.Insight != "" {
		fmt.Fprintf(&b, "Additional verified insight: %s\n", facts.Insight)
	}

	out, err := e.complete(ctx, systemPrompt, b.String())
	if err != nil {
		return "", err
	}
	if missing := missingFigures(facts.Summary+" "+facts.Insight, out); len(missing) > 0 {
		e.logger.Warn().Strs("missing", missing).Msg("discarding rephrased answer")
		return "", ErrUnverified
	}
	return out, nil
}

// Answer drafts a reply from retrieved orders. It is the last resort when
// no deterministic computation applies.
func (e *Explainer) Answer(ctx context.Context, question string, hits []retrieval.Hit) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nOrders:\n", question)
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s\n", h.Content)
	}
	return e.complete(ctx, fallbackPrompt, b.String())
}

func (e *Explainer) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		MaxTokens:   400,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", e.provider.Name(), err)
	}

	e.logger.Debug().
		Str("provider", e.provider.Name()).
		Str("model", resp.Model).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Float64("cost_usd", llm.EstimateCost(resp)).
		Dur("took", time.Since(start)).
		Msg("completion")

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", fmt.Errorf("%s returned an empty completion", e.provider.Name())
	}
	return out, nil
}

var figurePattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// missingFigures lists the numbers of want that do not appear in got.
func missingFigures(want, got string) []string {
	have := map[string]bool{}
	for _, n := range figurePattern.FindAllString(got, -1) {
		have[strings.ReplaceAll(n, ",", "")] = true
	}
	var missing []string
	for _, n := range figurePattern.FindAllString(want, -1) {
		if !have[strings.ReplaceAll(n, ",", "")] {
			missing = append(missing, n)
		}
	}
	return missing
}
