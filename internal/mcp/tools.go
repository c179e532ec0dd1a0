package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askSalesTool defines the ask_sales MCP tool.
var askSalesTool = mcp.NewTool("ask_sales",
	mcp.WithDescription("Answer a natural-language question about sales orders: rankings, totals, counts, status breakdowns, comparisons and lookups by agent, customer, weave, quality or composition."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question, e.g. \"Which weave sold the most in May 2025?\""),
	),
	mcp.WithString("session_id",
		mcp.Description("Session to continue so follow-ups like \"what about linen\" resolve against the previous question"),
	),
	mcp.WithString("format",
		mcp.Description("Response format (default text)"),
		mcp.Enum("text", "json"),
	),
)

// predictSalesTool defines the predict_sales MCP tool.
var predictSalesTool = mcp.NewTool("predict_sales",
	mcp.WithDescription("Forecast quantity, revenue and order count for a future month or year from monthly history."),
	mcp.WithString("period",
		mcp.Description("Target period such as \"next month\", \"July 2025\" or \"2026\" (default next month)"),
	),
)

// searchOrdersTool defines the search_orders MCP tool.
var searchOrdersTool = mcp.NewTool("search_orders",
	mcp.WithDescription("Find the orders most similar to a free-text description using the semantic index."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Free-text description of the orders to find"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of orders to return (default 5)"),
	),
)

// sessionHistoryTool defines the session_history MCP tool.
var sessionHistoryTool = mcp.NewTool("session_history",
	mcp.WithDescription("Get the recent questions and answers of a session."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session identifier returned by ask_sales"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of messages to return (default 10)"),
	),
)
