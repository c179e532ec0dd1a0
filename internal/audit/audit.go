// Package audit keeps a log of answered questions and which strategy
// produced each answer.
package audit

import "time"

// Entry is a single answered question.
type Entry struct {
	ID                string        `json:"id"`
	Timestamp         time.Time     `json:"timestamp"`
	SessionID         string        `json:"session_id"`
	Question          string        `json:"question"`
	EffectiveQuestion string        `json:"effective_question,omitempty"`
	Intent            string        `json:"intent,omitempty"`
	Strategy          string        `json:"strategy"`
	Summary           string        `json:"summary"`
	ProblemCode       string        `json:"problem_code,omitempty"`
	Angle             string        `json:"angle,omitempty"`
	RowCount          int           `json:"row_count"`
	Stale             bool          `json:"stale"`
	Duration          time.Duration `json:"duration"`
}

// StrategyCount is the number of entries answered by one strategy.
type StrategyCount struct {
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}
