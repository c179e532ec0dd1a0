package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// SQLStore persists sessions in the chat_sessions, chat_messages and
// session_repeats tables.
type SQLStore struct {
	db    *db.DB
	locks *keyedLock
}

// NewSQLStore creates a new session store.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database, locks: newKeyedLock()}
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Context, error) {
	c := &Context{SessionID: id, Repeats: make(map[string]int)}
	var dim string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_question, last_answer, last_entity_dimension, last_entity_value, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, id,
	).Scan(&c.LastQuestion, &c.LastAnswer, &dim, &c.LastEntity.Value, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	c.LastEntity.Dimension = sales.Dimension(dim)

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, count FROM session_repeats WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying repeats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fp string
		var n int
		if err := rows.Scan(&fp, &n); err != nil {
			return nil, fmt.Errorf("scanning repeat: %w", err)
		}
		c.Repeats[fp] = n
	}
	return c, rows.Err()
}

func (s *SQLStore) Put(ctx context.Context, c *Context) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, last_question, last_answer, last_entity_dimension, last_entity_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   last_question = excluded.last_question,
		   last_answer = excluded.last_answer,
		   last_entity_dimension = excluded.last_entity_dimension,
		   last_entity_value = excluded.last_entity_value,
		   updated_at = excluded.updated_at`,
		c.SessionID, c.LastQuestion, c.LastAnswer, string(c.LastEntity.Dimension), c.LastEntity.Value, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	for fp, n := range c.Repeats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO session_repeats (session_id, fingerprint, count) VALUES (?, ?, ?)
			 ON CONFLICT(session_id, fingerprint) DO UPDATE SET count = excluded.count`,
			c.SessionID, fp, n,
		)
		if err != nil {
			return fmt.Errorf("saving repeat counter: %w", err)
		}
	}
	return tx.Commit()
}

// Lock serialises turns within this process. A single sqlite file is not
// shared between server instances.
func (s *SQLStore) Lock(ctx context.Context, id string) (func(), error) {
	return s.locks.lock(ctx, id)
}

func (s *SQLStore) AppendMessage(ctx context.Context, m Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Metadata == "" {
		m.Metadata = "{}"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	// Messages may arrive before the first Put of a session.
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		m.SessionID, m.CreatedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ensuring session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Role, m.Content, m.Metadata, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

func (s *SQLStore) Messages(ctx context.Context, id string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tail(messages, limit), nil
}

// CountSessions returns the total number of chat sessions.
func (s *SQLStore) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&count)
	return count, err
}
