package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/salesiq/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:                "test-1",
		Timestamp:         time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		SessionID:         "s1",
		Question:          "what about satin",
		EffectiveQuestion: "most sold weave in May 2025 satin",
		Intent:            "most_or_least_sold",
		Strategy:          "deterministic",
		Summary:           "Satin sold 120 units.",
		Angle:             "margins",
		RowCount:          4,
		Stale:             true,
		Duration:          42 * time.Millisecond,
	}

	if _, err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.EffectiveQuestion != entry.EffectiveQuestion {
		t.Errorf("EffectiveQuestion = %q, want %q", got.EffectiveQuestion, entry.EffectiveQuestion)
	}
	if got.Strategy != "deterministic" {
		t.Errorf("Strategy = %q, want %q", got.Strategy, "deterministic")
	}
	if got.RowCount != 4 {
		t.Errorf("RowCount = %d, want 4", got.RowCount)
	}
	if !got.Stale {
		t.Error("Stale = false, want true")
	}
	if got.Duration != 42*time.Millisecond {
		t.Errorf("Duration = %v, want 42ms", got.Duration)
	}
	if !got.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, entry.Timestamp)
	}
}

func TestLogGeneratesUUID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Log(ctx, Entry{Question: "q", Strategy: "deterministic"})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected UUID-length ID, got %q", id)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)

	if _, err := store.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "e1", Timestamp: base, SessionID: "s1", Question: "q1", Strategy: "deterministic"},
		{ID: "e2", Timestamp: base.Add(time.Hour), SessionID: "s1", Question: "q2", Strategy: "fallback_statistic"},
		{ID: "e3", Timestamp: base.Add(2 * time.Hour), SessionID: "s2", Question: "q3", Strategy: "none", ProblemCode: "out_of_domain"},
		{ID: "e4", Timestamp: base.Add(3 * time.Hour), SessionID: "s2", Question: "q4", Strategy: "deterministic"},
	}
	for _, e := range entries {
		if _, err := store.Log(context.Background(), e); err != nil {
			t.Fatalf("Log(%s): %v", e.ID, err)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"e4", "e3", "e2", "e1"}},
		{"by session", QueryFilter{SessionID: "s1"}, []string{"e2", "e1"}},
		{"by strategy", QueryFilter{Strategy: "deterministic"}, []string{"e4", "e1"}},
		{"by problem", QueryFilter{ProblemCode: "out_of_domain"}, []string{"e3"}},
		{"limit and offset", QueryFilter{Limit: 2, Offset: 1}, []string{"e3", "e2"}},
		{"offset only", QueryFilter{Offset: 3}, []string{"e1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var ids []string
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}

	since := time.Date(2025, 6, 1, 1, 30, 0, 0, time.UTC)
	entries, err := store.Query(ctx, QueryFilter{Since: &since})
	if err != nil {
		t.Fatalf("Query since: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("since: got %d entries, want 2", len(entries))
	}
}

func TestCountByStrategy(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	counts, err := store.CountByStrategy(context.Background())
	if err != nil {
		t.Fatalf("CountByStrategy: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("got %d strategies, want 3", len(counts))
	}
	if counts[0].Strategy != "deterministic" || counts[0].Count != 2 {
		t.Errorf("top = %+v, want deterministic x2", counts[0])
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	n, err := store.DeleteBefore(context.Background(), time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/audit/?session_id=s2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit/e1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get by id status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit/nope", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit/strategies", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var counts []StrategyCount
	if err := json.NewDecoder(w.Body).Decode(&counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if len(counts) != 3 {
		t.Errorf("got %d strategy counts, want 3", len(counts))
	}
}
