package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
)

// handleAskSales answers one question, optionally within a session.
func (s *Server) handleAskSales(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.engine.Ask(ctx, question, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("question failed: %v", err)), nil
	}

	if request.GetString("format", "text") == "json" {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode answer: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(formatAnswer(ans)), nil
}

// handlePredictSales forecasts a period in a fresh session.
func (s *Server) handlePredictSales(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period := strings.TrimSpace(request.GetString("period", ""))
	if period == "" {
		period = "next month"
	}

	ans, err := s.engine.Ask(ctx, "predict sales for "+period, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prediction failed: %v", err)), nil
	}
	if ans.Problem != nil && ans.Problem.Code == query.ProblemInsufficientHistory {
		return mcp.NewToolResultError(ans.Summary), nil
	}
	return mcp.NewToolResultText(formatAnswer(ans)), nil
}

// handleSearchOrders runs a semantic search over the order index.
func (s *Server) handleSearchOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	hits, err := s.index.Search(ctx, q, limit)
	if errors.Is(err, retrieval.ErrDisabled) {
		return mcp.NewToolResultError("Retrieval is not enabled. Set retrieval.enabled and run `salesiq index`."), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No orders found. The index may be empty; run `salesiq index` to build it."), nil
	}

	return mcp.NewToolResultText(formatHits(hits)), nil
}

// handleSessionHistory returns the tail of a session's chat history.
func (s *Server) handleSessionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	msgs, err := s.engine.Tracker().Store().Messages(ctx, id, request.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read history: %v", err)), nil
	}
	if len(msgs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Session %s has no history.", id)), nil
	}

	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Role, m.Content))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatAnswer renders an answer as plain text for agent consumption.
func formatAnswer(ans *query.Answer) string {
	var sb strings.Builder
	sb.WriteString(ans.Text())
	sb.WriteString("\n")

	if ans.Insight != "" {
		sb.WriteString(fmt.Sprintf("\nInsight: %s\n", ans.Insight))
	}
	if p := ans.Problem; p != nil {
		sb.WriteString(fmt.Sprintf("\nProblem: %s\n", p.Code))
		if len(p.Candidates) > 0 {
			sb.WriteString(fmt.Sprintf("Did you mean: %s\n", strings.Join(p.Candidates, ", ")))
		}
		if p.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("Try: %s\n", p.Suggestion))
		}
	}
	if ans.Stale {
		sb.WriteString("\nNote: live data was unavailable; answered from the last saved snapshot.\n")
	}

	sb.WriteString(fmt.Sprintf("\nStrategy: %s\n", ans.Strategy))
	if ans.Effective != "" && ans.Effective != ans.Question {
		sb.WriteString(fmt.Sprintf("Answered as: %s\n", ans.Effective))
	}
	sb.WriteString(fmt.Sprintf("Session: %s\n", ans.SessionID))
	return sb.String()
}

// formatHits lists search hits with their similarity.
func formatHits(hits []retrieval.Hit) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d order(s):\n", len(hits)))
	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Order: %s\n", h.ID))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", h.Similarity*100))
		sb.WriteString(h.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
