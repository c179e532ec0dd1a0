package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/salesiq/internal/audit"
	"github.com/ziadkadry99/salesiq/internal/session"
)

const ordersJSON = `{"status":200,"formData":[
{"_id":"a1","date":"2025-05-27","weave":"Satin","quantity":"10","rate":"100","status":"Confirmed","agentName":"Mukilan","customerName":"Jhon"},
{"_id":"a2","date":"2025-05-28","weave":"Linen","quantity":"5","rate":"80","status":"Declined","agentName":"Devaraj","customerName":"Jhon"}
]}`

// withConfig points the command package at a fresh config over a one-file
// dataset and restores the globals afterwards.
func withConfig(t *testing.T, store string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte(ordersJSON), 0o644))

	yml := fmt.Sprintf(`data_source:
  files: %s
store: %s
database: %s
log:
  level: disabled
`, filepath.Join(dir, "*.json"), store, filepath.Join(dir, "salesiq.db"))
	path := filepath.Join(dir, ".salesiq.yml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
	return dir
}

func TestNewAppMemoryStore(t *testing.T) {
	withConfig(t, "memory")
	ctx := context.Background()

	a, err := newApp(ctx)
	require.NoError(t, err)
	defer a.close()

	assert.IsType(t, &session.MemoryStore{}, a.sessions)
	assert.Nil(t, a.index)

	ans, err := a.engine.Ask(ctx, "how many sales", "")
	require.NoError(t, err)
	// The declined order is counted in the breakdown only.
	assert.Equal(t, 1, ans.RowCount())
	require.NotNil(t, ans.Detail.Breakdown)
	assert.Equal(t, 2, ans.Detail.Breakdown.Total)

	var buf bytes.Buffer
	printAnswer(&buf, ans)
	assert.Contains(t, buf.String(), "session "+ans.SessionID)
	assert.Contains(t, buf.String(), "deterministic")
}

func TestNewAppSQLiteStoreRecordsAudit(t *testing.T) {
	dir := withConfig(t, "sqlite")
	ctx := context.Background()

	a, err := newApp(ctx)
	require.NoError(t, err)

	_, err = a.engine.Ask(ctx, "most sold weave", "s1")
	require.NoError(t, err)
	entries, err := a.audit.Query(ctx, audit.QueryFilter{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deterministic", entries[0].Strategy)
	a.close()

	assert.FileExists(t, filepath.Join(dir, "salesiq.db"))

	// Sessions survive a restart.
	a, err = newApp(ctx)
	require.NoError(t, err)
	defer a.close()
	c, err := a.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "most sold weave", c.LastQuestion)
}

func TestNewAppInvalidConfig(t *testing.T) {
	withConfig(t, "postgres")
	_, err := newApp(context.Background())
	assert.ErrorContains(t, err, "invalid store")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "₹₹₹...", truncate("₹₹₹₹₹", 3))
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "abc", shortID("abc"))
}
