package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/salesiq/internal/query"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "ask"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
	Format    string `json:"format"` // "html" adds rendered output
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string        `json:"type"` // "answer" or "error"
	SessionID string        `json:"session_id"`
	Content   string        `json:"content"`
	HTML      string        `json:"html,omitempty"`
	Answer    *query.Answer `json:"answer,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// The connection belongs to this session until the client picks
	// another one.
	sessionID := ""
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, sessionID, "invalid message format")
			continue
		}
		if req.SessionID != "" {
			sessionID = req.SessionID
		}
		if req.Content == "" {
			s.sendError(conn, sessionID, "content is required")
			continue
		}
		if req.Type != "ask" {
			s.sendError(conn, sessionID, "unknown message type: "+req.Type)
			continue
		}

		ans, err := s.deps.Engine.Ask(r.Context(), req.Content, sessionID)
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket ask")
			s.sendError(conn, sessionID, "question failed: "+err.Error())
			continue
		}
		sessionID = ans.SessionID

		resp := chatResponse{
			Type:      "answer",
			SessionID: sessionID,
			Content:   Markdown(ans),
			Answer:    ans,
		}
		if req.Format == "html" {
			if resp.HTML, err = HTML(ans); err != nil {
				s.logger.Warn().Err(err).Msg("render answer")
			}
		}
		s.send(conn, resp)
	}
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn().Err(err).Msg("websocket write")
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, message string) {
	s.send(conn, chatResponse{Type: "error", SessionID: sessionID, Content: message})
}
