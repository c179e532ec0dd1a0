package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/report"
	"github.com/ziadkadry99/salesiq/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	// Format "html" adds a rendered copy of the answer.
	Format string `json:"format"`
}

type askResponse struct {
	*query.Answer
	Markdown string `json:"markdown,omitempty"`
	HTML     string `json:"html,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ans, err := s.deps.Engine.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		s.askFailed(w, err)
		return
	}

	resp := askResponse{Answer: ans}
	switch req.Format {
	case "markdown":
		resp.Markdown = Markdown(ans)
	case "html":
		html, err := HTML(ans)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.HTML = html
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) askFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, query.ErrEmptyQuestion) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("ask failed")
	writeError(w, http.StatusInternalServerError, "failed to answer question")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ans, err := s.deps.Engine.Ask(r.Context(), q.Get("question"), q.Get("session_id"))
	if err != nil {
		s.askFailed(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="salesiq-answer.xlsx"`)
	w.Header().Set("X-Session-Id", ans.SessionID)
	if err := report.Write(w, ans); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.deps.Index == nil || s.deps.Data == nil {
		writeError(w, http.StatusServiceUnavailable, "retrieval index is not enabled")
		return
	}

	snap, err := s.deps.Data.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "refresh dataset: "+err.Error())
		return
	}
	rebuilt, err := s.deps.Index.Build(r.Context(), snap, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rebuilt":   rebuilt,
		"documents": s.deps.Index.Count(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Engine.Tracker().Store().Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	msgs, err := s.deps.Engine.Tracker().Store().Messages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
