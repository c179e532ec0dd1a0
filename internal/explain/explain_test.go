package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/llm"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
)

type mockProvider struct {
	reply string
	err   error
	delay time.Duration
	last  llm.CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.last = req
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.reply, Model: "mock-1"}, nil
}

func TestRephraseKeepsFigures(t *testing.T) {
	p := &mockProvider{reply: "  Satin leads with 1,200 units across 4 orders.  "}
	e := New(p, "m", 0, zerolog.Nop())

	out, err := e.Rephrase(context.Background(), Facts{
		Question: "most sold weave",
		Summary:  "The most sold weave is Satin with 1,200 units over 4 orders.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Satin leads with 1,200 units across 4 orders.", out)

	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, llm.RoleSystem, p.last.Messages[0].Role)
	assert.Contains(t, p.last.Messages[1].Content, "Verified answer: The most sold weave is Satin")
	assert.Equal(t, "m", p.last.Model)
}

func TestRephraseRejectsChangedFigures(t *testing.T) {
	p := &mockProvider{reply: "Satin leads with roughly 1,000 units."}
	e := New(p, "m", 0, zerolog.Nop())

	_, err := e.Rephrase(context.Background(), Facts{Summary: "Satin sold 1,200 units."})
	assert.ErrorIs(t, err, ErrUnverified)
}

func TestRephraseErrors(t *testing.T) {
	boom := errors.New("boom")
	e := New(&mockProvider{err: boom}, "", 0, zerolog.Nop())
	_, err := e.Rephrase(context.Background(), Facts{Summary: "x"})
	assert.ErrorIs(t, err, boom)

	e = New(&mockProvider{reply: "   "}, "", 0, zerolog.Nop())
	_, err = e.Rephrase(context.Background(), Facts{Summary: "x"})
	assert.ErrorContains(t, err, "empty completion")
}

func TestTimeout(t *testing.T) {
	e := New(&mockProvider{reply: "late", delay: time.Second}, "", 20*time.Millisecond, zerolog.Nop())
	_, err := e.Rephrase(context.Background(), Facts{Summary: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnswerListsOrders(t *testing.T) {
	p := &mockProvider{reply: "Ravi Textiles ordered Satin."}
	e := New(p, "", 0, zerolog.Nop())

	out, err := e.Answer(context.Background(), "who buys satin", []retrieval.Hit{
		{ID: "a1", Content: "Order a1: customer Ravi Textiles ordered 100 of Satin."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Textiles ordered Satin.", out)
	assert.Contains(t, p.last.Messages[1].Content, "- Order a1: customer Ravi Textiles")
}

func TestMissingFigures(t *testing.T) {
	assert.Empty(t, missingFigures("₹1,234.50 from 3 orders", "3 orders earned ₹1234.50"))
	assert.Equal(t, []string{"7"}, missingFigures("7 orders", "several orders"))
}
