package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/nexuscore/monologue/pkg/monologuemodels"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	token_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	agent_id INT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS tool_calls (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	args_json TEXT NOT NULL,
	result TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id);
`

// PostgresConfig holds connection settings for the Postgres store.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// PostgresStore persists sessions to Postgres, for multi-process
// deployments where a local SQLite file does not fit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens, pings, and migrates the database.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres store: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ensureSession(sessionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		sessionID, time.Now().UTC(),
	)
	return err
}

// AppendMessage appends one message row for the session.
func (s *PostgresStore) AppendMessage(sessionID string, agentID int, msg monologuemodels.Message) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, agent_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sessionID, agentID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	return err
}

// AppendToolCall appends one tool-call record for the session.
func (s *PostgresStore) AppendToolCall(sessionID, toolName, argsJSON, result string) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO tool_calls (session_id, tool_name, args_json, result, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sessionID, toolName, argsJSON, result, time.Now().UTC(),
	)
	return err
}

// SetTitle records the session title.
func (s *PostgresStore) SetTitle(sessionID, title string) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sessions SET title = $1 WHERE id = $2`, title, sessionID)
	return err
}

// IncrementTokens adds count to the session's running token total.
func (s *PostgresStore) IncrementTokens(sessionID string, count int) error {
	if err := s.ensureSession(sessionID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sessions SET token_count = token_count + $1 WHERE id = $2`, count, sessionID)
	return err
}
