package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/config"
)

type stubProvider struct {
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(context.Context, CompletionRequest) (*CompletionResponse, error) {
	s.calls++
	return &CompletionResponse{Content: "ok"}, nil
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	cfg := config.DefaultConfig()
	_, err := NewProvider(ctx, cfg)
	assert.ErrorIs(t, err, ErrNoProvider)

	cfg.Provider = "bogus"
	_, err = NewProvider(ctx, cfg)
	assert.Error(t, err)

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg.Provider = config.ProviderAnthropic
	_, err = NewProvider(ctx, cfg)
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg.Provider = config.ProviderOpenAI
	p, err := NewProvider(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.IsType(t, &RateLimitedProvider{}, p)

	cfg.Provider = config.ProviderOllama
	cfg.Engine.RequestsPerMin = 0
	p, err = NewProvider(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &OllamaProvider{}, p)
}

func TestAnthropicComplete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"Satin leads."}],"model":"m","stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "m")
	p.url = srv.URL
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "rephrase"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Satin leads.", resp.Content)
	assert.Equal(t, 5, resp.InputTokens)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "m")
	p.url = srv.URL
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorContains(t, err, "slow down")
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Write([]byte(`{"message":{"role":"assistant","content":"hi"},"model":"llama3","done_reason":"stop","prompt_eval_count":2,"eval_count":1}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL+"/", "llama3").Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer failing.Close()
	_, err = NewOllamaProvider(failing.URL, "x").Complete(context.Background(), CompletionRequest{})
	assert.ErrorContains(t, err, "404")
}

func TestRateLimiter(t *testing.T) {
	stub := &stubProvider{}
	rl := NewRateLimitedProvider(stub, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rl.Complete(ctx, CompletionRequest{})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err := rl.Complete(ctx, CompletionRequest{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 2, stub.calls)
}

func TestEstimateCost(t *testing.T) {
	cost := EstimateCost(&CompletionResponse{Model: "gpt-4o", InputTokens: 1_000_000, OutputTokens: 1_000_000})
	assert.InDelta(t, 12.5, cost, 1e-9)
	assert.Zero(t, EstimateCost(&CompletionResponse{Model: "llama3", InputTokens: 100}))
	assert.Zero(t, EstimateCost(nil))
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleSystem, Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "q"}}, turns)
}
