package retrieval

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// wordEmbedder gives every distinct word its own dimension, so vectors
// only overlap on shared words.
type wordEmbedder struct {
	mu    sync.Mutex
	words map[string]int
	calls int
}

const dims = 512

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{words: map[string]int{}}
}

func (e *wordEmbedder) Name() string { return "words" }

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dims)
		for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
		}) {
			idx, ok := e.words[w]
			if !ok {
				idx = len(e.words) % dims
				e.words[w] = idx
			}
			vec[idx]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		for j := range vec {
			vec[j] = float32(float64(vec[j]) / norm)
		}
		out[i] = vec
	}
	return out, nil
}

func snapshot() *sales.Snapshot {
	return &sales.Snapshot{Records: []sales.Record{
		{ID: "a1", Date: "2025-05-02", Weave: "Satin", Quality: "Premium", Composition: "Silk", Quantity: "100", Rate: "80", Status: sales.StatusConfirmed, AgentName: "Mukilan", CustomerName: "Ravi Textiles"},
		{ID: "a2", Date: "2025-06-11", Weave: "Linen", Quality: "Standard", Composition: "Flax", Quantity: "40", Rate: "60", Status: sales.StatusDeclined, AgentName: "Devaraj", CustomerName: "Kumar Mills"},
	}}
}

func TestBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	x, err := NewIndex(newWordEmbedder(), "", nil, zerolog.Nop())
	require.NoError(t, err)

	built, err := x.Build(ctx, snapshot(), nil)
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, 2, x.Count())

	hits, err := x.Search(ctx, "satin mukilan", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].ID)
	assert.Equal(t, "Mukilan", hits[0].Metadata["agent"])
	assert.Equal(t, "2025-05-02", hits[0].Metadata["date"])
	assert.Contains(t, hits[0].Content, "2 May 2025")
}

func TestBuildSkipsUnchangedSnapshot(t *testing.T) {
	ctx := context.Background()
	state, err := db.OpenMemory()
	require.NoError(t, err)
	defer state.Close()

	emb := newWordEmbedder()
	x, err := NewIndex(emb, t.TempDir(), state, zerolog.Nop())
	require.NoError(t, err)

	built, err := x.Build(ctx, snapshot(), nil)
	require.NoError(t, err)
	require.True(t, built)
	calls := emb.calls

	built, err = x.Build(ctx, snapshot(), nil)
	require.NoError(t, err)
	assert.False(t, built)
	assert.Equal(t, calls, emb.calls)

	changed := snapshot()
	changed.Records[1].Status = sales.StatusConfirmed
	built, err = x.Build(ctx, changed, nil)
	require.NoError(t, err)
	assert.True(t, built)
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := newWordEmbedder()

	x, err := NewIndex(emb, dir, nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = x.Build(ctx, snapshot(), nil)
	require.NoError(t, err)

	y, err := NewIndex(emb, dir, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, y.Load())
	assert.Equal(t, 2, y.Count())

	empty, err := NewIndex(emb, t.TempDir(), nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, empty.Load())
	assert.Zero(t, empty.Count())
}

func TestNilIndexIsDisabled(t *testing.T) {
	var x *Index
	_, err := x.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = x.Build(context.Background(), snapshot(), nil)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Zero(t, x.Count())
	assert.NoError(t, x.Load())
}

func TestSearchEmptyIndex(t *testing.T) {
	x, err := NewIndex(newWordEmbedder(), "", nil, zerolog.Nop())
	require.NoError(t, err)
	hits, err := x.Search(context.Background(), "satin", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSummaryHandlesBlanks(t *testing.T) {
	rows := cleaner.Clean([]sales.Record{{Quantity: "g", Rate: "x"}})
	assert.Equal(t, "Order -: customer - ordered 0 of - - - from agent - at rate 0, status -.", Summary(rows[0]))
}

func TestHashChangesWithContent(t *testing.T) {
	a, err := Hash(snapshot().Records)
	require.NoError(t, err)
	b, err := Hash(snapshot().Records)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	s := snapshot()
	s.Records[0].Rate = "81"
	c, err := Hash(s.Records)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
