// Package store provides SQLite-backed persistence for taskscribe:
// streaming sessions, the per-session signature ledger, and the history of
// executed operations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the taskscribe SQLite database.
type Store struct {
	db *sql.DB
}

// Session is one streaming run against a board.
type Session struct {
	ID        string
	Provider  string
	StartedAt time.Time
	EndedAt   *time.Time
}

// HistoryEntry is one executed operation with its outcome.
type HistoryEntry struct {
	ID        string
	SessionID string
	Kind      string
	Signature string
	Target    string
	Success   bool
	Detail    string
	CreatedAt time.Time
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS signatures (
		session_id TEXT NOT NULL,
		signature TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, signature),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		signature TEXT NOT NULL,
		target TEXT,
		success INTEGER NOT NULL,
		detail TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_signatures_session ON signatures(session_id);
	CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Session Operations ---

// CreateSession starts a new streaming session.
func (s *Store) CreateSession(provider string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Provider:  provider,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, provider, started_at) VALUES (?, ?, ?)`,
		session.ID, session.Provider, session.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// EndSession marks a session finished.
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, provider, started_at, ended_at FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var endedAt sql.NullTime
		if err := rows.Scan(&session.ID, &session.Provider, &session.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if endedAt.Valid {
			session.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// --- Signature Operations ---

// SeenSignature reports whether the signature was already recorded for the
// session.
func (s *Store) SeenSignature(sessionID, signature string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM signatures WHERE session_id = ? AND signature = ?`,
		sessionID, signature,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query signature: %w", err)
	}
	return true, nil
}

// RecordSignature records a signature for the session. Recording the same
// signature twice is a no-op.
func (s *Store) RecordSignature(sessionID, signature string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO signatures (session_id, signature, created_at) VALUES (?, ?, ?)`,
		sessionID, signature, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

// --- History Operations ---

// RecordHistory inserts one executed-operation record.
func (s *Store) RecordHistory(sessionID, kind, signature, target string, success bool, detail string) (*HistoryEntry, error) {
	entry := &HistoryEntry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Kind:      kind,
		Signature: signature,
		Target:    target,
		Success:   success,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO history (id, session_id, kind, signature, target, success, detail, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Kind, entry.Signature, entry.Target, entry.Success, entry.Detail, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	return entry, nil
}

// HistoryForSession returns a session's executed operations, oldest first.
func (s *Store) HistoryForSession(sessionID string) ([]HistoryEntry, error) {
	return s.queryHistory(
		`SELECT id, session_id, kind, signature, target, success, detail, created_at FROM history WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
}

// RecentHistory returns the latest executed operations across sessions.
func (s *Store) RecentHistory(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryHistory(
		`SELECT id, session_id, kind, signature, target, success, detail, created_at FROM history ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
}

func (s *Store) queryHistory(query string, args ...interface{}) ([]HistoryEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var target, detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Kind, &entry.Signature, &target, &entry.Success, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if target.Valid {
			entry.Target = target.String
		}
		if detail.Valid {
			entry.Detail = detail.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
