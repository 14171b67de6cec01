// Package sessionstore provides concrete implementations of the optional
// session persistence contract: append-style writes for messages and tool
// calls keyed by session id, a title setter, and a token-count
// incrementer. Any operation may fail; the monologue scheduler swallows
// and logs every failure, so implementations here just report errors
// honestly.
package sessionstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	token_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent_id INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS tool_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	args_json TEXT NOT NULL,
	result TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id);
`

// SQLiteStore persists sessions to a local SQLite database. The driver is
// selected at build time: the cgo driver when available, the pure-Go one
// otherwise.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite serialises its own writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent tool batches.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an existing database handle; the caller is
// responsible for the schema. Used by tests.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) ensureSession(sessionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, time.Now().UTC(),
	)
	return err
}

// AppendMessage appends one message row for the session.
func (s *SQLiteStore) AppendMessage(sessionID string, agentID int, msg monologuemodels.Message) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, agent_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, agentID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	return err
}

// AppendToolCall appends one tool-call record for the session.
func (s *SQLiteStore) AppendToolCall(sessionID, toolName, argsJSON, result string) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO tool_calls (session_id, tool_name, args_json, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, toolName, argsJSON, result, time.Now().UTC(),
	)
	return err
}

// SetTitle records the session title.
func (s *SQLiteStore) SetTitle(sessionID, title string) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sessions SET title = ? WHERE id = ?`, title, sessionID)
	return err
}

// IncrementTokens adds count to the session's running token total.
func (s *SQLiteStore) IncrementTokens(sessionID string, count int) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sessions SET token_count = token_count + ? WHERE id = ?`, count, sessionID)
	return err
}
