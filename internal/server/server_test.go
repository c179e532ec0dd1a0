package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ziadkadry99/salesiq/internal/audit"
	"github.com/ziadkadry99/salesiq/internal/datasource"
	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/sales"
	"github.com/ziadkadry99/salesiq/internal/session"
)

var testNow = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)

func records() []sales.Record {
	mk := func(id, date, weave, qty, agent string) sales.Record {
		return sales.Record{
			ID: id, Date: date, Weave: weave, Quality: "Premium", Composition: "Cotton",
			Quantity: sales.Text(qty), Rate: "100", Status: sales.StatusConfirmed,
			AgentName: agent, CustomerName: "Jhon",
		}
	}
	return []sales.Record{
		mk("a1", "2025-05-27", "Satin", "10", "Mukilan"),
		mk("a2", "2025-05-28", "Satin", "12", "Mukilan"),
		mk("a3", "2025-05-28", "Linen", "5", "Devaraj"),
		mk("a4", "2025-05-30", "Plain", "7", "Devaraj"),
	}
}

func newTestServer(t *testing.T, withAudit bool) *Server {
	t.Helper()
	provider := datasource.NewProvider(datasource.StaticSource{Records: records()}, nil, datasource.ProviderConfig{}, zerolog.Nop())
	opts := query.Options{
		Data:    provider,
		Tracker: session.NewTracker(session.NewMemoryStore(), func() time.Time { return testNow }),
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return testNow },
	}
	deps := Deps{Data: provider, Logger: zerolog.Nop()}
	if withAudit {
		database, err := db.OpenMemory()
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		deps.Audit = audit.NewStore(database)
		opts.Audit = deps.Audit
	}
	deps.Engine = query.New(opts)
	return New(Config{CORSOrigins: []string{"*"}}, deps)
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newTestServer(t, false), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestCORSHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	newTestServer(t, false).Router().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAsk(t *testing.T) {
	srv := newTestServer(t, false)

	w := do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "how many sales in May 2025"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
		Summary   string `json:"summary"`
		Strategy  string `json:"strategy"`
		HTML      string `json:"html"`
		Detail    struct {
			RowCount int `json:"row_count"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Summary)
	assert.Equal(t, 4, resp.Detail.RowCount)
	assert.Equal(t, "deterministic", resp.Strategy)
	assert.Empty(t, resp.HTML)
}

func TestAskHTML(t *testing.T) {
	srv := newTestServer(t, false)

	w := do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "Most sold weave in May 2025?", Format: "html"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.HTML, "<table>")
	assert.Contains(t, resp.HTML, "Satin")
}

func TestAskBadRequests(t *testing.T) {
	srv := newTestServer(t, false)

	w := do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	w := do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "Most sold weave?", SessionID: "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c session.Context
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "Most sold weave?", c.LastQuestion)

	w = do(t, srv, http.MethodGet, "/api/sessions/s1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []session.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)

	w = do(t, srv, http.MethodGet, "/api/sessions/s1/messages?limit=1", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 1)

	w = do(t, srv, http.MethodGet, "/api/sessions/s1/messages?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, false)

	w := do(t, srv, http.MethodGet, "/api/export.xlsx?question=Most+sold+weave+in+May+2025", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Session-Id"))

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Ranking")
}

func TestReindexWithoutIndex(t *testing.T) {
	w := do(t, newTestServer(t, false), http.MethodPost, "/api/reindex", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuditRoutes(t *testing.T) {
	srv := newTestServer(t, true)

	do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "Most sold weave?", SessionID: "s1"})
	do(t, srv, http.MethodPost, "/api/ask", askRequest{Question: "who won the football match", SessionID: "s1"})

	w := do(t, srv, http.MethodGet, "/api/audit/?session_id=s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	w = do(t, newTestServer(t, false), http.MethodGet, "/api/audit/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketChat(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, false).Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "ask", Content: "Most sold weave in May 2025?", Format: "html"}))
	var resp chatResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "answer", resp.Type)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Content, "Satin")
	assert.Contains(t, resp.HTML, "<table>")
	require.NotNil(t, resp.Answer)
	first := resp.SessionID

	// The connection keeps its session, so a short follow-up merges.
	require.NoError(t, conn.WriteJSON(chatRequest{Type: "ask", Content: "what about linen"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, first, resp.SessionID)
	assert.Contains(t, resp.Answer.Effective, "linen")

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "ask"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "content is required", resp.Content)

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "shout", Content: "hi"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "invalid message format", resp.Content)
}

func TestMarkdown(t *testing.T) {
	srv := newTestServer(t, false)
	ans, err := srv.deps.Engine.Ask(context.Background(), "revenue for customer Zed", "")
	require.NoError(t, err)
	require.NotNil(t, ans.Problem)

	out := Markdown(ans)
	assert.True(t, strings.HasPrefix(out, ans.Summary))

	html, err := HTML(ans)
	require.NoError(t, err)
	assert.Contains(t, html, "<p>")
}

type failingRefresher struct{}

func (failingRefresher) Refresh(context.Context) (*sales.Snapshot, error) {
	return nil, errors.New("upstream down")
}

func TestNewDefaults(t *testing.T) {
	srv := New(Config{}, Deps{Data: failingRefresher{}, Logger: zerolog.Nop()})
	assert.Equal(t, ":8080", srv.cfg.Addr)
	assert.Equal(t, 10, srv.cfg.HistoryLimit)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
