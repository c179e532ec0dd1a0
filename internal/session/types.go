// Package session tracks per-session conversational state: the previous
// question and answer, the last named entity and repeat counters.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

// ErrNotFound is returned by Store.Get for unknown sessions.
var ErrNotFound = errors.New("session not found")

// Entity is the last agent or customer a session asked about.
type Entity struct {
	Dimension sales.Dimension `json:"dimension,omitempty"`
	Value     string          `json:"value,omitempty"`
}

// Context is the state carried between turns of one session.
type Context struct {
	SessionID    string         `json:"session_id"`
	LastQuestion string         `json:"last_question"`
	LastAnswer   string         `json:"last_answer"`
	LastEntity   Entity         `json:"last_entity"`
	Repeats      map[string]int `json:"repeats"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewContext returns an empty context for id.
func NewContext(id string, now time.Time) *Context {
	return &Context{SessionID: id, Repeats: make(map[string]int), CreatedAt: now, UpdatedAt: now}
}

// Clone returns a deep copy of c.
func (c *Context) Clone() *Context {
	cp := *c
	cp.Repeats = make(map[string]int, len(c.Repeats))
	for k, v := range c.Repeats {
		cp.Repeats[k] = v
	}
	return &cp
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one line of a session's chat history.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists session contexts and history. Lock serialises turns of the
// same session; the returned func releases it.
type Store interface {
	Get(ctx context.Context, id string) (*Context, error)
	Put(ctx context.Context, c *Context) error
	Lock(ctx context.Context, id string) (func(), error)
	AppendMessage(ctx context.Context, m Message) error
	// Messages returns the last limit messages, oldest first. A limit of
	// zero or less returns all of them.
	Messages(ctx context.Context, id string, limit int) ([]Message, error)
}
